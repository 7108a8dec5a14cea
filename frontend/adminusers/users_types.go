package adminusers

type UserView struct {
	ID       int64  `json:"id" bun:"id"`
	Username string `json:"username" bun:"username"`
	Role     string `json:"role" bun:"role"`
}

type CreateUserRequest struct {
	Username string `json:"username" validate:"notblank,max=64"`
	Password string `json:"password" validate:"notblank,min=12"`
	Role     string `json:"role" validate:"oneof=admin operator"`
}

type PageData struct {
	Users []UserView
}
