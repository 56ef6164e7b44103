package chat_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/tembichat/internal/db"
	svcErr "github.com/oggyb/tembichat/internal/errors"
	"github.com/oggyb/tembichat/internal/service/chat"
	"github.com/oggyb/tembichat/internal/testutil"
)

func setupService(t *testing.T) (*chat.Service, *testutil.Env) {
	t.Helper()
	env := testutil.New(t)
	return chat.NewService(env.App), env
}

func messageCount(t *testing.T, env *testutil.Env, userID string) int {
	t.Helper()
	u, err := env.App.Store.Users.GetByID(context.Background(), userID)
	require.NoError(t, err)
	return u.MessageCount
}

func TestSend_ConsumesQuotaUntilExhausted(t *testing.T) {
	svc, env := setupService(t)
	ctx := context.Background()
	a := env.CreateUser(t, "A")
	b := env.CreateUser(t, "B")

	for i := 0; i < 20; i++ {
		_, err := svc.Send(ctx, a.ID, b.ID, fmt.Sprintf("msg %d", i))
		require.NoError(t, err)
		env.Clock.Advance(time.Second)
	}
	assert.Equal(t, 0, messageCount(t, env, a.ID))

	_, err := svc.Send(ctx, a.ID, b.ID, "one too many")
	assert.ErrorIs(t, err, svcErr.ErrQuotaExceeded)

	conv, err := svc.Conversation(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Len(t, conv, 20, "a rejected send writes nothing")
	assert.Equal(t, 0, messageCount(t, env, a.ID), "never below zero")
}

func TestConversation_SameTimestampKeepsSendOrder(t *testing.T) {
	svc, env := setupService(t)
	ctx := context.Background()
	a := env.CreateUser(t, "A", testutil.WithPlan(db.PlanPro, db.Unlimited))
	b := env.CreateUser(t, "B", testutil.WithPlan(db.PlanPro, db.Unlimited))

	// the clock stands still: every message shares one created_at
	var sent []string
	for i := 0; i < 10; i++ {
		from, to := a, b
		if i%3 == 0 {
			from, to = b, a
		}
		m, err := svc.Send(ctx, from.ID, to.ID, fmt.Sprintf("m%d", i))
		require.NoError(t, err)
		sent = append(sent, m.ID)
	}

	conv, err := svc.Conversation(ctx, a.ID, b.ID)
	require.NoError(t, err)
	got := make([]string, 0, len(conv))
	for _, m := range conv {
		got = append(got, m.ID)
	}
	assert.Equal(t, sent, got)

	last, err := env.App.Store.Messages.LastMessage(ctx, a.ID, b.ID)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "m9", last.Content)
}

func TestSend_PremiumIsNotMetered(t *testing.T) {
	svc, env := setupService(t)
	ctx := context.Background()
	pro := env.CreateUser(t, "Pro", testutil.WithPlan(db.PlanPro, db.Unlimited))
	b := env.CreateUser(t, "B")

	_, err := svc.Send(ctx, pro.ID, b.ID, "hello")
	require.NoError(t, err)
	assert.Equal(t, db.Unlimited, messageCount(t, env, pro.ID))
}

func TestSend_Validation(t *testing.T) {
	svc, env := setupService(t)
	ctx := context.Background()
	a := env.CreateUser(t, "A")

	_, err := svc.Send(ctx, a.ID, "", "  ")
	require.ErrorIs(t, err, svcErr.ErrMissingFields)
	assert.Equal(t, []string{"receiverId", "content"}, svcErr.Map(err).Fields)

	_, err = svc.Send(ctx, "ghost", a.ID, "hi")
	assert.ErrorIs(t, err, svcErr.ErrSenderNotFound)
}

func TestSend_ConcurrentSendsNeverOverspend(t *testing.T) {
	svc, env := setupService(t)
	ctx := context.Background()
	a := env.CreateUser(t, "A", testutil.WithPlan(db.PlanFree, 5))
	b := env.CreateUser(t, "B")

	var wg sync.WaitGroup
	var mu sync.Mutex
	sent, rejected := 0, 0
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Send(ctx, a.ID, b.ID, "hi")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				sent++
			} else if assert.ErrorIs(t, err, svcErr.ErrQuotaExceeded) {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, sent)
	assert.Equal(t, 7, rejected)
	assert.Equal(t, 0, messageCount(t, env, a.ID))
}

func TestReadConversation_MarksOnlyInbound(t *testing.T) {
	svc, env := setupService(t)
	ctx := context.Background()
	a := env.CreateUser(t, "A")
	b := env.CreateUser(t, "B")

	_, err := svc.Send(ctx, a.ID, b.ID, "hi B")
	require.NoError(t, err)
	env.Clock.Advance(time.Second)
	_, err = svc.Send(ctx, b.ID, a.ID, "hi A")
	require.NoError(t, err)

	// a pure read leaves state alone
	conv, err := svc.Conversation(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, conv[0].Read)

	conv, err = svc.ReadConversation(ctx, b.ID, a.ID)
	require.NoError(t, err)
	require.Len(t, conv, 2)
	assert.Equal(t, "hi B", conv[0].Content)
	assert.True(t, conv[0].Read, "addressed to reader")
	assert.False(t, conv[1].Read, "sent by reader")

	n, err := svc.MarkRead(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestInbox_LastMessageUnreadAndOrder(t *testing.T) {
	svc, env := setupService(t)
	ctx := context.Background()
	me := env.CreateUser(t, "Me", testutil.WithPlan(db.PlanPro, db.Unlimited))
	quiet := env.CreateUser(t, "Quiet")
	chatty := env.CreateUser(t, "Chatty")

	_, _, err := env.App.Store.Matches.CreateIfAbsent(ctx, me.ID, quiet.ID, env.Clock.Now())
	require.NoError(t, err)
	env.Clock.Advance(time.Minute)
	_, _, err = env.App.Store.Matches.CreateIfAbsent(ctx, me.ID, chatty.ID, env.Clock.Now().Add(-time.Hour))
	require.NoError(t, err)

	env.Clock.Advance(time.Minute)
	_, err = svc.Send(ctx, chatty.ID, me.ID, "first")
	require.NoError(t, err)
	env.Clock.Advance(time.Second)
	_, err = svc.Send(ctx, chatty.ID, me.ID, "second")
	require.NoError(t, err)

	inbox, err := svc.Inbox(ctx, me.ID)
	require.NoError(t, err)
	require.Len(t, inbox, 2)

	assert.Equal(t, chatty.ID, inbox[0].User.ID, "recent message beats recent match")
	assert.Equal(t, "second", inbox[0].LastMessage.Content)
	assert.Equal(t, int64(2), inbox[0].UnreadCount)

	assert.Equal(t, quiet.ID, inbox[1].User.ID)
	assert.Nil(t, inbox[1].LastMessage)
	assert.Equal(t, int64(0), inbox[1].UnreadCount)
}
