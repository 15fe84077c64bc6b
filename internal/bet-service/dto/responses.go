package dto

// ErrorResponse segue o formato {"detail": "..."} esperado pelos clientes
type ErrorResponse struct {
	Detail string `json:"detail"`
}
