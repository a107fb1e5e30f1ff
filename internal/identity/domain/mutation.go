package domain

import "time"

// Field names a mutable identity column.
type Field string

const (
	FieldLoginAttempts            Field = "login_attempts"
	FieldLockUntil                Field = "lock_until"
	FieldLastLogin                Field = "last_login"
	FieldEmailVerified            Field = "is_email_verified"
	FieldOTPHash                  Field = "otp_code"
	FieldOTPExpires               Field = "otp_expires"
	FieldEmailVerificationHash    Field = "email_verification_token"
	FieldEmailVerificationExpires Field = "email_verification_expires"
	FieldPasswordHash             Field = "password_hash"
	FieldPasswordChangedAt        Field = "password_changed_at"
	FieldActive                   Field = "is_active"
	FieldName                     Field = "name"
	FieldDepartment               Field = "department"
	FieldYearLevel                Field = "year_level"
)

// Mutation is one column write. Policy functions return mutations; stores apply
// a batch in a single atomic update. Value is int, bool, string or *time.Time
// depending on Field.
type Mutation struct {
	Field Field
	Value any
}

func SetLoginAttempts(n int) Mutation       { return Mutation{FieldLoginAttempts, n} }
func SetLockUntil(t *time.Time) Mutation    { return Mutation{FieldLockUntil, t} }
func SetLastLogin(t time.Time) Mutation     { return Mutation{FieldLastLogin, &t} }
func SetEmailVerified(v bool) Mutation      { return Mutation{FieldEmailVerified, v} }
func SetOTPHash(h string) Mutation          { return Mutation{FieldOTPHash, h} }
func SetOTPExpires(t *time.Time) Mutation   { return Mutation{FieldOTPExpires, t} }
func SetVerificationHash(h string) Mutation { return Mutation{FieldEmailVerificationHash, h} }
func SetVerificationExpires(t *time.Time) Mutation {
	return Mutation{FieldEmailVerificationExpires, t}
}
func SetPasswordHash(h string) Mutation         { return Mutation{FieldPasswordHash, h} }
func SetPasswordChangedAt(t time.Time) Mutation { return Mutation{FieldPasswordChangedAt, &t} }
func SetActive(v bool) Mutation                 { return Mutation{FieldActive, v} }
func SetName(s string) Mutation                 { return Mutation{FieldName, s} }
func SetDepartment(s string) Mutation           { return Mutation{FieldDepartment, s} }
func SetYearLevel(n int) Mutation               { return Mutation{FieldYearLevel, n} }

// Apply returns a copy of i with muts applied in order. Mutations with a value
// of the wrong type are ignored.
func Apply(i Identity, muts ...Mutation) Identity {
	for _, m := range muts {
		switch m.Field {
		case FieldLoginAttempts:
			if v, ok := m.Value.(int); ok {
				i.LoginAttempts = v
			}
		case FieldLockUntil:
			if v, ok := m.Value.(*time.Time); ok {
				i.LockUntil = copyTime(v)
			}
		case FieldLastLogin:
			if v, ok := m.Value.(*time.Time); ok {
				i.LastLogin = copyTime(v)
			}
		case FieldEmailVerified:
			if v, ok := m.Value.(bool); ok {
				i.EmailVerified = v
			}
		case FieldOTPHash:
			if v, ok := m.Value.(string); ok {
				i.OTPHash = v
			}
		case FieldOTPExpires:
			if v, ok := m.Value.(*time.Time); ok {
				i.OTPExpires = copyTime(v)
			}
		case FieldEmailVerificationHash:
			if v, ok := m.Value.(string); ok {
				i.EmailVerificationHash = v
			}
		case FieldEmailVerificationExpires:
			if v, ok := m.Value.(*time.Time); ok {
				i.EmailVerificationExpires = copyTime(v)
			}
		case FieldPasswordHash:
			if v, ok := m.Value.(string); ok {
				i.PasswordHash = v
			}
		case FieldPasswordChangedAt:
			if v, ok := m.Value.(*time.Time); ok {
				i.PasswordChangedAt = copyTime(v)
			}
		case FieldActive:
			if v, ok := m.Value.(bool); ok {
				i.Active = v
			}
		case FieldName:
			if v, ok := m.Value.(string); ok {
				i.Name = v
			}
		case FieldDepartment:
			if v, ok := m.Value.(string); ok {
				i.Department = v
			}
		case FieldYearLevel:
			if v, ok := m.Value.(int); ok {
				i.YearLevel = v
			}
		}
	}
	return i
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
