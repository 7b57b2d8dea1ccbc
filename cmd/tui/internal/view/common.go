package view

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const dbTimeout = 5 * time.Second

// CommonModel is embedded by all views.
type CommonModel struct{}

// BackMsg returns control to the menu.
type BackMsg struct{}

func Back() tea.Msg {
	return BackMsg{}
}

// DbCtx returns a context with a standard timeout for database operations.
func DbCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}
