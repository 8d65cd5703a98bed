package staff

import "time"

// Member represents a staff record. Salary and bank account are restricted
// fields; only organization-wide admins see them.
type Member struct {
	ID          string
	BranchID    string
	UserID      *string
	FullName    string
	Position    string
	Salary      *int64
	BankAccount *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Doc returns the authorization snapshot of the record.
func (m Member) Doc() map[string]any {
	doc := map[string]any{
		"id":        m.ID,
		"branch_id": m.BranchID,
		"name":      m.FullName,
		"position":  m.Position,
	}
	if m.UserID != nil {
		doc["user_id"] = *m.UserID
	}
	if m.Salary != nil {
		doc["salary"] = *m.Salary
	}
	if m.BankAccount != nil {
		doc["bank_account"] = *m.BankAccount
	}
	return doc
}

// CreateMemberInput carries the fields accepted when registering staff.
type CreateMemberInput struct {
	BranchID    string  `json:"branch_id"`
	FullName    string  `json:"full_name" validate:"required"`
	Position    string  `json:"position" validate:"required"`
	UserID      *string `json:"user_id,omitempty"`
	Salary      *int64  `json:"salary,omitempty"`
	BankAccount *string `json:"bank_account,omitempty"`
}
