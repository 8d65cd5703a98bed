package students

import "time"

// Student represents an enrolled student record. UserID links the student's
// own login account; ParentID links the guardian account used for the
// parent-access exception.
type Student struct {
	ID          string
	BranchID    string
	Number      string
	FullName    string
	UserID      *string
	ParentID    *string
	ClassID     *string
	MedicalInfo *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Doc returns the authorization snapshot of the record: ownership and branch
// fields plus the data fields subject to field-level filtering.
func (s Student) Doc() map[string]any {
	doc := map[string]any{
		"id":        s.ID,
		"branch_id": s.BranchID,
		"number":    s.Number,
		"name":      s.FullName,
	}
	if s.UserID != nil {
		doc["user_id"] = *s.UserID
	}
	if s.ParentID != nil {
		doc["parent_id"] = *s.ParentID
	}
	if s.ClassID != nil {
		doc["class_id"] = *s.ClassID
	}
	if s.MedicalInfo != nil {
		doc["medical_info"] = *s.MedicalInfo
	}
	return doc
}

// CreateStudentInput carries the fields accepted when registering a student.
type CreateStudentInput struct {
	BranchID    string  `json:"branch_id"`
	Number      string  `json:"number" validate:"required"`
	FullName    string  `json:"full_name" validate:"required"`
	UserID      *string `json:"user_id,omitempty"`
	ParentID    *string `json:"parent_id,omitempty"`
	ClassID     *string `json:"class_id,omitempty"`
	MedicalInfo *string `json:"medical_info,omitempty"`
}

// UpdateStudentInput carries the mutable fields of a student record.
type UpdateStudentInput struct {
	FullName    *string `json:"full_name,omitempty"`
	ParentID    *string `json:"parent_id,omitempty"`
	ClassID     *string `json:"class_id,omitempty"`
	MedicalInfo *string `json:"medical_info,omitempty"`
}
