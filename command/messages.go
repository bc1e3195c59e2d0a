// Package command exposes the session operations as dispatchable command
// messages so hosts built on a message bus can drive authentication without
// holding the session directly.
package command

import (
	"github.com/vitrinehq/go-storefront/core"
)

const (
	TypeLogin          = "storefront.command.login"
	TypeRegister       = "storefront.command.register"
	TypeLogout         = "storefront.command.logout"
	TypeRestore        = "storefront.command.restore"
	TypeRefreshProfile = "storefront.command.profile.refresh"
)

type LoginMessage struct {
	Request core.LoginRequest
}

func (LoginMessage) Type() string { return TypeLogin }

func (m LoginMessage) Validate() error {
	if err := m.Request.Validate(); err != nil {
		return commandWrapValidation(err, "command: invalid login message")
	}
	return nil
}

type RegisterMessage struct {
	Request core.RegisterRequest
}

func (RegisterMessage) Type() string { return TypeRegister }

func (m RegisterMessage) Validate() error {
	if err := m.Request.Validate(); err != nil {
		return commandWrapValidation(err, "command: invalid register message")
	}
	return nil
}

type LogoutMessage struct{}

func (LogoutMessage) Type() string { return TypeLogout }

func (LogoutMessage) Validate() error { return nil }

type RestoreMessage struct{}

func (RestoreMessage) Type() string { return TypeRestore }

func (RestoreMessage) Validate() error { return nil }

type RefreshProfileMessage struct{}

func (RefreshProfileMessage) Type() string { return TypeRefreshProfile }

func (RefreshProfileMessage) Validate() error { return nil }
