package util

import (
	"fmt"

	"github.com/gestore-cpu/gestione-doc-security/model"
)

type ValidationUtil struct{}

func NewValidationUtil() *ValidationUtil {
	return &ValidationUtil{}
}

func (v *ValidationUtil) ValidatePolicy(policy model.AutoPolicy) error {
	if policy.Name == "" {
		return fmt.Errorf("policy name cannot be empty")
	}
	if policy.Action != model.ActionApprove && policy.Action != model.ActionDeny {
		return fmt.Errorf("policy action must be either 'approve' or 'deny'")
	}
	if policy.Priority < 0 {
		return fmt.Errorf("policy priority cannot be negative")
	}
	if len(policy.RawCondition) == 0 {
		return fmt.Errorf("policy must have a condition")
	}
	if _, err := model.ParseCondition([]byte(policy.RawCondition)); err != nil {
		return fmt.Errorf("invalid policy condition: %w", err)
	}
	return nil
}

func (v *ValidationUtil) ValidateAccessRequest(request model.AccessRequest) error {
	if request.UserID == "" {
		return fmt.Errorf("request user ID cannot be empty")
	}
	if request.DocumentID == "" {
		return fmt.Errorf("request document ID cannot be empty")
	}
	return nil
}

func (v *ValidationUtil) ValidateUser(user model.User) error {
	if user.ID == "" {
		return fmt.Errorf("user ID cannot be empty")
	}
	if user.Username == "" {
		return fmt.Errorf("user username cannot be empty")
	}
	if user.Email == "" {
		return fmt.Errorf("user email cannot be empty")
	}
	return nil
}

func (v *ValidationUtil) ValidateDocument(document model.Document) error {
	if document.ID == "" {
		return fmt.Errorf("document ID cannot be empty")
	}
	if document.Title == "" {
		return fmt.Errorf("document title cannot be empty")
	}
	return nil
}
