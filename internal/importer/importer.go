package importer

import (
	"fmt"
	"io"

	"github.com/tmiguel/saldo/internal/importer/statement"
	"github.com/tmiguel/saldo/internal/reconcile"
)

// Format names a statement file layout the service knows how to parse.
type Format string

const (
	// FormatCSV is the header-detected CSV layout most bank exports use.
	FormatCSV Format = "csv"
)

type Parser interface {
	Parse(r io.Reader) ([]reconcile.Candidate, error)
}

type Service struct {
	parsers map[Format]Parser
}

func NewService() *Service {
	return &Service{
		parsers: map[Format]Parser{
			FormatCSV: statement.NewParser(),
		},
	}
}

func (s *Service) Parse(format Format, r io.Reader) ([]reconcile.Candidate, error) {
	parser, ok := s.parsers[format]
	if !ok {
		return nil, fmt.Errorf("unknown statement format: %s", format)
	}

	return parser.Parse(r)
}
