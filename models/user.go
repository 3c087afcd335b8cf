package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// UserRole enum. Roles form a strict permission hierarchy:
// citizen < low_admin < high_admin.
type UserRole string

const (
	RoleCitizen   UserRole = "citizen"
	RoleLowAdmin  UserRole = "low_admin"
	RoleHighAdmin UserRole = "high_admin"
)

// ValidRoles lists every accepted user role.
var ValidRoles = map[UserRole]bool{
	RoleCitizen: true, RoleLowAdmin: true, RoleHighAdmin: true,
}

// User is an actor in the system. Zones is populated for low_admins only;
// users are deactivated, never deleted, to preserve referential history.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name       string             `bson:"name" json:"name"`
	Email      string             `bson:"email" json:"email"`
	Password   string             `bson:"password,omitempty" json:"-"`
	Role       UserRole           `bson:"role" json:"role"`
	Zones      []string           `bson:"zones,omitempty" json:"zones,omitempty"`
	Department string             `bson:"department,omitempty" json:"department,omitempty"`
	Active     bool               `bson:"active" json:"active"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) HashPassword() error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

func (u *User) ComparePassword(candidate string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(candidate))
	return err == nil
}

// IsAdmin reports whether the user holds either admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleLowAdmin || u.Role == RoleHighAdmin
}

// HasZone reports whether zone is in the user's assigned-zone set.
func (u *User) HasZone(zone string) bool {
	for _, z := range u.Zones {
		if z == zone {
			return true
		}
	}
	return false
}
