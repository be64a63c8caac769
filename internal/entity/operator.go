package entity

type OperatorLoginData struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
