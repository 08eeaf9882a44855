package model

import "github.com/google/uuid"

type Role string

const (
	RoleBuyer  Role = "BUYER"
	RoleExpert Role = "EXPERT"
	RoleAdmin  Role = "ADMIN"
)

type Principal struct {
	UserID uuid.UUID
	Role   Role
}

func (p Principal) IsBuyer() bool  { return p.Role == RoleBuyer }
func (p Principal) IsExpert() bool { return p.Role == RoleExpert }
func (p Principal) IsAdmin() bool  { return p.Role == RoleAdmin }
