package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/chatsession/internal/store"
)

func TestSearchTerms(t *testing.T) {
	assert.Equal(t, []string{"deploy", "kubernetes", "cluster"},
		SearchTerms("deploy to the Kubernetes cluster, and deploy!"))
	assert.Empty(t, SearchTerms("the and of"))
	assert.Empty(t, SearchTerms("  ...  "))
}

func TestSearchRanksByMatches(t *testing.T) {
	m, _ := newTestManager(t)
	m.RenameChat(m.CurrentChatID(), "Groceries")
	m.AddMessage(store.Message{Role: store.RoleUser, Content: "buy milk"})

	infra := m.CreateChat("Kubernetes notes")
	m.AddMessage(store.Message{Role: store.RoleUser, Content: "the kubernetes cluster is down"})
	m.AddMessage(store.Message{Role: store.RoleAssistant, Content: "restart the cluster"})

	other := m.CreateChat("Weekend")
	m.AddMessage(store.Message{Role: store.RoleUser, Content: "Cluster of grapes"})

	hits := m.Search("kubernetes cluster")
	require.Len(t, hits, 2)

	assert.Equal(t, infra.ID, hits[0].Chat.ID)
	assert.Greater(t, hits[0].Matches, hits[1].Matches)
	assert.Equal(t, []string{"kubernetes", "cluster"}, hits[0].Terms)

	assert.Equal(t, other.ID, hits[1].Chat.ID)
	assert.Equal(t, []string{"cluster"}, hits[1].Terms)
}

func TestSearchSkipsArchivedAndEmptyQueries(t *testing.T) {
	m, _ := newTestManager(t)
	hidden := m.CreateChat("secret plans")
	m.ArchiveChat(hidden.ID)

	assert.Empty(t, m.Search("secret"))
	assert.Nil(t, m.Search("the"))
	assert.Nil(t, m.Search(""))
}
