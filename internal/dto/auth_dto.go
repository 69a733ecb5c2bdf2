package dto

import "github.com/google/uuid"

type FullName struct {
	FirstName string `json:"firstName" validate:"required,max=60"`
	LastName  string `json:"lastName" validate:"max=60"`
}

type RegisterRequest struct {
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required,min=6,max=72"`
	FullName FullName `json:"fullName" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UserResponse struct {
	Id       uuid.UUID `json:"_id"`
	Email    string    `json:"email"`
	FullName FullName  `json:"fullName"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}
