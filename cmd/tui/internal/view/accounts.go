package view

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/tmiguel/saldo/internal/account"
	"github.com/tmiguel/saldo/internal/summary"
)

type AccountsModel struct {
	CommonModel
	userID     uuid.UUID
	accountSvc *account.Service
	summarySvc *summary.Service

	table    table.Model
	accounts []*account.Account
	summary  *summary.AccountSummary
	loading  bool
	err      error
}

func NewAccountsModel(userID uuid.UUID, accountSvc *account.Service, summarySvc *summary.Service) AccountsModel {
	columns := []table.Column{
		{Title: "Name", Width: 30},
		{Title: "Balance", Width: 14},
		{Title: "Created", Width: 12},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return AccountsModel{
		userID:     userID,
		accountSvc: accountSvc,
		summarySvc: summarySvc,
		table:      t,
		loading:    true,
	}
}

func (m AccountsModel) Title() string     { return "Accounts" }
func (m AccountsModel) ShortHelp() string { return "Esc: back | enter: summary | r: refresh" }

func (m AccountsModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m AccountsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case accountsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.accounts = msg.accounts
		m.refreshTable()

		return m, nil

	case summaryLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.summary = msg.summary

		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			m.summary = nil

			return m, m.loadCmd()
		case "enter":
			idx := m.table.Cursor()
			if idx >= 0 && idx < len(m.accounts) {
				return m, m.summaryCmd(m.accounts[idx].ID)
			}

			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m AccountsModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading accounts...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	content := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	if m.summary != nil {
		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Render(fmt.Sprintf(
				"%s\n\nBalance:      %s\nTransactions: %d\nDebits:       %s\nCredits:      %s\nTransfers:    %d",
				m.summary.Name,
				FormatAmount(m.summary.Balance),
				m.summary.TransactionCount,
				FormatAmount(m.summary.TotalDebits),
				FormatAmount(m.summary.TotalCredits),
				m.summary.TransferCount,
			))

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *AccountsModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.accounts))
	for _, a := range m.accounts {
		rows = append(rows, table.Row{
			a.Name,
			FormatAmount(a.Balance),
			FormatDate(a.CreatedAt),
		})
	}

	m.table.SetRows(rows)
}

type accountsLoadedMsg struct {
	accounts []*account.Account
	err      error
}

func (m AccountsModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		accounts, err := m.accountSvc.List(ctx, m.userID)

		return accountsLoadedMsg{accounts: accounts, err: err}
	}
}

type summaryLoadedMsg struct {
	summary *summary.AccountSummary
	err     error
}

func (m AccountsModel) summaryCmd(accountID uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		s, err := m.summarySvc.Summarize(ctx, m.userID, accountID)

		return summaryLoadedMsg{summary: s, err: err}
	}
}
