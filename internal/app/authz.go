package service

import (
	"github.com/okian/combine/internal/domain/apperr"
	"github.com/okian/combine/internal/domain/model"
)

func requireUser(op string, p model.Principal) error {
	if p.UserID == "" {
		return apperr.Forbidden(op, "authentication required")
	}
	return nil
}

func requireWrite(op string, p model.Principal) error {
	if err := requireUser(op, p); err != nil {
		return err
	}
	if !p.EmailVerified {
		return apperr.Forbidden(op, "email address is not verified")
	}
	if p.Role == model.RoleViewer || p.Role == "" {
		return apperr.Forbidden(op, "role %q cannot write", p.Role)
	}
	return nil
}

func requireOrganizer(op string, p model.Principal) error {
	if err := requireWrite(op, p); err != nil {
		return err
	}
	if !p.CanOrganize() {
		return apperr.Forbidden(op, "organizer role required")
	}
	return nil
}

func requireEvaluator(op string, p model.Principal) error {
	if err := requireWrite(op, p); err != nil {
		return err
	}
	if !p.CanEvaluate() {
		return apperr.Forbidden(op, "role %q cannot submit evaluations", p.Role)
	}
	return nil
}
