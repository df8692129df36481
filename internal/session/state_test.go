package session

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/family-catalog/internal/model"
)

func authorized(id string) Event {
	ident := model.Identity{AccountID: id, Email: id + "@x.com"}
	return Event{
		Kind:     EventAuthorized,
		Identity: ident,
		Session:  &model.AuthorizedSession{Identity: ident, UserType: model.UserTypeRegular},
	}
}

func TestPublishTracksCurrent(t *testing.T) {
	st := NewState()

	st.Publish(authorized("a"))
	sess, ok := st.Current("a")
	require.True(t, ok)
	assert.Equal(t, "a", sess.AccountID())

	st.Publish(Event{Kind: EventSignedOut, Identity: model.Identity{AccountID: "a"}})
	_, ok = st.Current("a")
	assert.False(t, ok)
}

func TestRejectedClearsCurrent(t *testing.T) {
	st := NewState()
	st.Publish(authorized("a"))

	st.Publish(Event{Kind: EventRejected, Identity: model.Identity{AccountID: "a"}, Reason: errors.New("gone")})

	_, ok := st.Current("a")
	assert.False(t, ok)
}

func TestSubscribersInOrder(t *testing.T) {
	st := NewState()
	var got []string

	st.Subscribe(func(ev Event) { got = append(got, "first:"+string(ev.Kind)) })
	st.Subscribe(func(ev Event) { got = append(got, "second:"+string(ev.Kind)) })

	st.Publish(authorized("a"))

	assert.Equal(t, []string{"first:authorized", "second:authorized"}, got)
}

func TestUnsubscribe(t *testing.T) {
	st := NewState()
	calls := 0

	unsubscribe := st.Subscribe(func(Event) { calls++ })
	st.Publish(authorized("a"))
	unsubscribe()
	unsubscribe()
	st.Publish(authorized("b"))

	assert.Equal(t, 1, calls)
}

func TestConcurrentPublish(t *testing.T) {
	st := NewState()
	var (
		mu    sync.Mutex
		count int
	)
	st.Subscribe(func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			st.Publish(authorized(string(rune('a' + i%26))))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, count)
}
