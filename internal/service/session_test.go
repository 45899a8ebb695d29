package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/librarydesk/internal/domain"
)

func TestSessionReplay(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.llm.Script(`{"tool": "find_books", "args": {"q": "Dune"}}`).Script("Found Dune.")
	f.chat(t, "s1", "find Dune")
	f.llm.Script(`{"tool": "find_books", "args": {"q": "Hobbit"}}`).Script("Found The Hobbit.")
	f.chat(t, "s2", "find Hobbit")
	f.llm.Script(`{"tool": "order_status", "args": {"order_id": 1}}`)
	f.chat(t, "s1", "status of order 1")

	messages, err := f.svc.GetMessages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, messages, 4)
	assert.Equal(t, domain.MessageView{Role: domain.RoleUser, Content: "find Dune", CreatedAt: messages[0].CreatedAt}, messages[0])
	assert.Equal(t, "Found Dune.", messages[1].Content)
	assert.Equal(t, "status of order 1", messages[2].Content)
	_, err = time.Parse(time.RFC3339Nano, messages[0].CreatedAt)
	assert.NoError(t, err)

	sessions, err := f.svc.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "s1", sessions[0].SessionID)

	empty, err := f.svc.GetMessages(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
