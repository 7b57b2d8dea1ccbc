package view

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/tmiguel/saldo/internal/transaction"
	"github.com/tmiguel/saldo/internal/transfer"
)

// TransfersModel lists detected transfer pairs and runs detection on demand.
type TransfersModel struct {
	CommonModel
	userID      uuid.UUID
	txSvc       *transaction.Service
	transferSvc *transfer.Service

	table   table.Model
	txs     []*transaction.Transaction
	loading bool
	err     error
	status  string
}

func NewTransfersModel(userID uuid.UUID, txSvc *transaction.Service, transferSvc *transfer.Service) TransfersModel {
	columns := []table.Column{
		{Title: "Date", Width: 12},
		{Title: "Type", Width: 8},
		{Title: "Amount", Width: 12},
		{Title: "Description", Width: 40},
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

	return TransfersModel{
		userID:      userID,
		txSvc:       txSvc,
		transferSvc: transferSvc,
		table:       t,
		loading:     true,
	}
}

func (m TransfersModel) Title() string     { return "Transfers" }
func (m TransfersModel) ShortHelp() string { return "Esc: back | d: detect | r: refresh" }

func (m TransfersModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m TransfersModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case transfersLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.txs = msg.txs
		m.refreshTable()

		return m, nil

	case detectedMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Detection failed: %v", msg.err)
			return m, nil
		}

		m.status = fmt.Sprintf("Detected %d new pair(s)", msg.pairs)

		return m, m.loadCmd()

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "d":
			m.status = "Detecting..."
			return m, m.detectCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m TransfersModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading transfers...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	content := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *TransfersModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.txs))
	for _, tx := range m.txs {
		rows = append(rows, table.Row{
			FormatDate(tx.Date),
			string(tx.Type),
			FormatSigned(tx.SignedAmount()),
			tx.Description,
		})
	}

	m.table.SetRows(rows)
}

type transfersLoadedMsg struct {
	txs []*transaction.Transaction
	err error
}

func (m TransfersModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		txs, _, err := m.txSvc.List(ctx, m.userID, transaction.ListFilter{
			Type:  new(transaction.TypeTransfer),
			Limit: 200,
		})

		return transfersLoadedMsg{txs: txs, err: err}
	}
}

type detectedMsg struct {
	pairs int
	err   error
}

func (m TransfersModel) detectCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		pairs, err := m.transferSvc.Detect(ctx, m.userID, nil)

		return detectedMsg{pairs: pairs, err: err}
	}
}
