package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/tmiguel/saldo/internal/transaction"
)

type txState int

const (
	txStateBrowse txState = iota
	txStateEdit
)

// typeFilters cycles with the t key; nil means all rows.
var typeFilters = []*transaction.Type{
	nil,
	new(transaction.TypeDebit),
	new(transaction.TypeCredit),
	new(transaction.TypeTransfer),
}

var typeFilterLabels = []string{"All", "Debits", "Credits", "Transfers"}

type TransactionsModel struct {
	CommonModel
	userID uuid.UUID
	txSvc  *transaction.Service

	state txState
	table table.Model
	txs   []*transaction.Transaction
	form  *huh.Form

	typeFilterIdx int
	total         int
	loading       bool
	err           error
	status        string

	formDesc  string
	formNotes string
}

func NewTransactionsModel(userID uuid.UUID, txSvc *transaction.Service) TransactionsModel {
	columns := []table.Column{
		{Title: "Date", Width: 12},
		{Title: "Type", Width: 8},
		{Title: "Amount", Width: 12},
		{Title: "Description", Width: 36},
		{Title: "Transfer", Width: 8},
		{Title: "Source", Width: 14},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
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

	return TransactionsModel{
		userID:  userID,
		txSvc:   txSvc,
		table:   t,
		loading: true,
	}
}

func (m TransactionsModel) Title() string { return "Transactions" }
func (m TransactionsModel) ShortHelp() string {
	if m.state == txStateEdit {
		return "Navigate form | Esc: cancel"
	}

	return "Esc: back | e: edit | x: delete | t: type filter | r: refresh"
}

func (m TransactionsModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m TransactionsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case txLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.txs = msg.txs
		m.total = msg.total
		m.refreshTable()

		return m, nil

	case txSavedMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
		} else {
			m.status = ""
		}

		m.state = txStateBrowse
		m.form = nil
		m.table.Focus()

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil
	}

	switch m.state {
	case txStateBrowse:
		return m.updateBrowse(msg)
	case txStateEdit:
		return m.updateEdit(msg)
	}

	return m, nil
}

func (m TransactionsModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "t":
			m.typeFilterIdx = (m.typeFilterIdx + 1) % len(typeFilters)
			return m, m.loadCmd()
		case "e":
			return m.enterEditMode()
		case "x":
			idx := m.table.Cursor()
			if idx >= 0 && idx < len(m.txs) {
				return m, m.deleteCmd(m.txs[idx].ID)
			}

			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m TransactionsModel) enterEditMode() (tea.Model, tea.Cmd) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.txs) {
		return m, nil
	}

	tx := m.txs[idx]
	m.formDesc = tx.Description
	m.formNotes = tx.Notes

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("description").
				Title("Description").
				Value(&m.formDesc).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("description cannot be empty")
					}

					return nil
				}),

			huh.NewInput().
				Key("notes").
				Title("Notes").
				Value(&m.formNotes),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = txStateEdit
	m.table.Blur()

	return m, m.form.Init()
}

func (m TransactionsModel) updateEdit(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.Type == tea.KeyEsc {
			m.state = txStateBrowse
			m.form = nil
			m.table.Focus()

			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	return m, m.saveCmd()
}

func (m TransactionsModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading transactions...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	header := fmt.Sprintf("Filter: [t] Type: %s | %d total",
		lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Render(typeFilterLabels[m.typeFilterIdx]),
		m.total,
	)

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableView,
	)

	if m.state == txStateEdit && m.form != nil {
		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(48).
			Render("Edit Transaction\n\n" + m.form.View())

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *TransactionsModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.txs))

	for _, tx := range m.txs {
		transferMark := ""
		if tx.IsTransfer {
			transferMark = "yes"
		}

		source := ""
		if tx.ImportSource != nil {
			source = *tx.ImportSource
		}

		rows = append(rows, table.Row{
			FormatDate(tx.Date),
			string(tx.Type),
			FormatSigned(tx.SignedAmount()),
			tx.Description,
			transferMark,
			source,
		})
	}

	m.table.SetRows(rows)
}

type txLoadedMsg struct {
	txs   []*transaction.Transaction
	total int
	err   error
}

func (m TransactionsModel) loadCmd() tea.Cmd {
	filter := transaction.ListFilter{Type: typeFilters[m.typeFilterIdx], Limit: 200}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		txs, total, err := m.txSvc.List(ctx, m.userID, filter)

		return txLoadedMsg{txs: txs, total: total, err: err}
	}
}

type txSavedMsg struct {
	err error
}

func (m TransactionsModel) saveCmd() tea.Cmd {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.txs) {
		return nil
	}

	id := m.txs[idx].ID
	desc := m.formDesc
	notes := m.formNotes

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		_, err := m.txSvc.Update(ctx, m.userID, id, transaction.UpdatePatch{
			Description: &desc,
			Notes:       &notes,
		})

		return txSavedMsg{err: err}
	}
}

func (m TransactionsModel) deleteCmd(id uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		return txSavedMsg{err: m.txSvc.Delete(ctx, m.userID, id)}
	}
}
