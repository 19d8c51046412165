package admin

type TransitionRequest struct {
	Status       string `json:"status" validate:"required,oneof=pending confirmed processing shipped delivered cancelled refunded"`
	Note         string `json:"note" validate:"max=500"`
	OverrideRisk bool   `json:"override_risk"`
}
