package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

func TestValidate_ReportsJSONFieldNames(t *testing.T) {
	err := Validate(RegisterRequest{Name: "Alice", Email: "not-an-email"})
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeValidation, domainErr.Code)
	assert.Equal(t, "email", domainErr.Details["email"])
	assert.Equal(t, "required", domainErr.Details["password"])
	assert.Equal(t, "required", domainErr.Details["role"])
	assert.NotContains(t, domainErr.Details, "name")

	assert.NoError(t, Validate(RegisterRequest{Name: "A", Email: "a@example.com", Password: "pw", Role: "user"}))
	assert.Error(t, Validate(AssignTicketRequest{TicketID: "t"}))
	assert.Error(t, Validate(TicketListQuery{PageSize: 1000}))
}

func TestNewSummaryResponse_ChartFollowsPriorityOrder(t *testing.T) {
	resp := NewSummaryResponse(&domain.TicketSummary{
		Open:       2,
		Resolved:   1,
		ByPriority: map[domain.TicketPriority]int{domain.TicketPriorityHigh: 3},
	})
	assert.Equal(t, []string{"low", "medium", "high"}, resp.Chart.Labels)
	assert.Equal(t, []int{0, 0, 3}, resp.Chart.Data)
	assert.Equal(t, 2, resp.Summary.Active)
	assert.Equal(t, 1, resp.Summary.Solved)
}

func TestNewTicketResponse_OmitsUnloadedHistory(t *testing.T) {
	resp := NewTicketResponse(&domain.Ticket{ID: "t1"})
	assert.Nil(t, resp.History)

	resp = NewTicketResponse(&domain.Ticket{ID: "t1", History: []domain.HistoryEntry{{Message: "Ticket withdrawn"}}})
	require.Len(t, resp.History, 1)
	assert.Equal(t, "Ticket withdrawn", resp.History[0].Message)
}
