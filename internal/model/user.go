package model

import "time"

// Role names stored in users.role.  They drive authorization together with
// the IsSuperuser flag.
const (
    RoleUser      = "user"
    RoleModerator = "moderator"
    RoleAdmin     = "admin"
)

// ValidRole reports whether r is one of the known role names.
func ValidRole(r string) bool {
    switch r {
    case RoleUser, RoleModerator, RoleAdmin:
        return true
    }
    return false
}

// User represents an application user record as stored in the
// `users` table.  Users who registered through the e-mail flow have
// Username equal to Email until an administrator changes it.
//
// Fields:
//  ID          – primary key identifier of the user.
//  Username    – unique login name, used in URLs and as review author.
//  Email       – unique email address.
//  FirstName   – optional given name.
//  LastName    – optional family name.
//  Bio         – free-form profile text.
//  Role        – user, moderator or admin.
//  IsStaff     – set together with IsSuperuser when Role is admin.
//  IsSuperuser – unrestricted access, including user management.
//  IsActive    – whether the account may authenticate.
//  CreatedAt   – timestamp of creation.
//  UpdatedAt   – timestamp of last update.
type User struct {
    ID          uint64    // users.id
    Username    string    // users.username
    Email       string    // users.email
    FirstName   string    // users.first_name
    LastName    string    // users.last_name
    Bio         string    // users.bio
    Role        string    // users.role
    IsStaff     bool      // users.is_staff
    IsSuperuser bool      // users.is_superuser
    IsActive    bool      // users.is_active
    CreatedAt   time.Time // users.created_at
    UpdatedAt   time.Time // users.updated_at
}

// ApplyRoleFlags raises the staff and superuser flags for admins.  Flags are
// never lowered here; demoting an admin keeps whatever flags the record
// already carries.
func (u *User) ApplyRoleFlags() {
    if u.Role == RoleAdmin {
        u.IsStaff = true
        u.IsSuperuser = true
    }
}

// ConfirmationCode models an entry in the `confirmation_codes` table.  A
// user owns at most one code; issuing a new code replaces the old one and a
// successful exchange deletes it.  Only the bcrypt hash of the code is kept.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the code (unique).
//  CodeHash  – bcrypt hash of the code sent by e-mail.
//  ExpiresAt – after this instant the code no longer matches.
//  CreatedAt – timestamp of issuance.
type ConfirmationCode struct {
    ID        uint64    // confirmation_codes.id
    UserID    uint64    // confirmation_codes.user_id
    CodeHash  string    // confirmation_codes.code_hash
    ExpiresAt time.Time // confirmation_codes.expires_at
    CreatedAt time.Time // confirmation_codes.created_at
}

// Expired reports whether the code is past its expiry at instant now.
func (c ConfirmationCode) Expired(now time.Time) bool {
    return !now.Before(c.ExpiresAt)
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and contains metadata for expiry
// and revocation.  The plain token is not stored; only its
// SHA‑256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA‑256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    uint64     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}
