package main

import (
	"context"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/tmiguel/saldo/cmd/tui/internal/view"
	"github.com/tmiguel/saldo/internal/account"
	accountStore "github.com/tmiguel/saldo/internal/account/store"
	"github.com/tmiguel/saldo/internal/config"
	"github.com/tmiguel/saldo/internal/database"
	"github.com/tmiguel/saldo/internal/summary"
	summaryStore "github.com/tmiguel/saldo/internal/summary/store"
	"github.com/tmiguel/saldo/internal/transaction"
	txStore "github.com/tmiguel/saldo/internal/transaction/store"
	"github.com/tmiguel/saldo/internal/transfer"
	transferStore "github.com/tmiguel/saldo/internal/transfer/store"
)

type model struct {
	userID uuid.UUID

	accountService  *account.Service
	txService       *transaction.Service
	transferService *transfer.Service
	summaryService  *summary.Service

	currentView View

	accountsView     view.AccountsModel
	transactionsView view.TransactionsModel
	transfersView    view.TransfersModel
}

type View int

const (
	ViewMenu         View = 0
	ViewAccounts     View = 1
	ViewTransactions View = 2
	ViewTransfers    View = 3
)

func initialModel() model {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	userID, err := uuid.Parse(cfg.TUI.UserID)
	if err != nil {
		slog.Error("TUI_USER_ID must be a valid user id", "error", err)
		os.Exit(1)
	}

	db, err := database.New(context.Background(), cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	accounts := accountStore.New(db)

	accountSvc := account.NewService(accounts)
	txSvc := transaction.NewService(txStore.New(db, accounts))
	transferSvc := transfer.NewService(transferStore.New(db))
	summarySvc := summary.NewService(summaryStore.New(db), nil)

	return model{
		userID:           userID,
		accountService:   accountSvc,
		txService:        txSvc,
		transferService:  transferSvc,
		summaryService:   summarySvc,
		currentView:      ViewMenu,
		accountsView:     view.NewAccountsModel(userID, accountSvc, summarySvc),
		transactionsView: view.NewTransactionsModel(userID, txSvc),
		transfersView:    view.NewTransfersModel(userID, txSvc, transferSvc),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.currentView == ViewMenu {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewAccounts
				m.accountsView = view.NewAccountsModel(m.userID, m.accountService, m.summaryService)

				return m, m.accountsView.Init()
			case "2":
				m.currentView = ViewTransactions
				m.transactionsView = view.NewTransactionsModel(m.userID, m.txService)

				return m, m.transactionsView.Init()
			case "3":
				m.currentView = ViewTransfers
				m.transfersView = view.NewTransfersModel(m.userID, m.txService, m.transferService)

				return m, m.transfersView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewAccounts:
		var newModel tea.Model
		newModel, cmd = m.accountsView.Update(msg)
		m.accountsView = newModel.(view.AccountsModel)
	case ViewTransactions:
		var newModel tea.Model
		newModel, cmd = m.transactionsView.Update(msg)
		m.transactionsView = newModel.(view.TransactionsModel)
	case ViewTransfers:
		var newModel tea.Model
		newModel, cmd = m.transfersView.Update(msg)
		m.transfersView = newModel.(view.TransfersModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			"Saldo TUI\n\n" +
				"1. Accounts\n" +
				"2. Transactions\n" +
				"3. Transfers\n\n" +
				"q. Quit",
		)
	case ViewAccounts:
		return m.accountsView.View()
	case ViewTransactions:
		return m.transactionsView.View()
	case ViewTransfers:
		return m.transfersView.View()
	}

	return "Unknown View"
}

func main() {
	p := tea.NewProgram(initialModel())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
