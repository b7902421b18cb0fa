package plan

// UnlimitedAllowance is the sentinel allowance meaning the privilege is not
// quota-bound.
const UnlimitedAllowance int64 = -1

// Privilege declares, per plan, a quota-bound feature entitlement such as the
// number of teleconsultations per billing period. Read-only from the
// lifecycle core's perspective.
type Privilege struct {
	// ID is the unique identifier for the privilege
	ID string `db:"id" json:"id"`

	// PlanID is the plan granting the privilege
	PlanID string `db:"plan_id" json:"plan_id"`

	// Name is the privilege type name, e.g. "teleconsultation"
	Name string `db:"name" json:"name"`

	// Value is the per-period allowance; UnlimitedAllowance means no cap
	Value int64 `db:"value" json:"value"`
}

// IsUnlimited reports whether the privilege has no usage cap.
func (p *Privilege) IsUnlimited() bool {
	return p.Value == UnlimitedAllowance
}

// Common privilege type names used by the telehealth platform.
const (
	PrivilegeTeleconsultation = "teleconsultation"
	PrivilegeChatSession      = "chat_session"
	PrivilegeDocumentUpload   = "document_upload"
)
