package worker

import (
	"context"
	"errors"
	"testing"

	"herald/service/notification"
	"herald/service/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDisplayer struct {
	shown []notification.Payload
	err   error
}

func (f *fakeDisplayer) Show(ctx context.Context, p notification.Payload) error {
	f.shown = append(f.shown, p)
	return f.err
}

func TestHandlePush_EmptyPayloadDisplaysDefaults(t *testing.T) {
	d := &fakeDisplayer{}
	r := NewReceiver(d, util.NewLogger(false))

	p := r.HandlePush(context.Background(), nil)

	require.Len(t, d.shown, 1)
	assert.Equal(t, notification.DefaultTitle, p.Title)
	assert.Equal(t, notification.DefaultBody, p.Body)
	assert.NotEmpty(t, p.Tag)
}

func TestHandlePush_PlainTextBecomesTitle(t *testing.T) {
	d := &fakeDisplayer{}
	r := NewReceiver(d, util.NewLogger(false))

	p := r.HandlePush(context.Background(), []byte("Office hours cancelled"))

	require.Len(t, d.shown, 1)
	assert.Equal(t, "Office hours cancelled", d.shown[0].Title)
	assert.Equal(t, p, d.shown[0])
}

func TestHandlePush_DisplayFailureIsSwallowed(t *testing.T) {
	d := &fakeDisplayer{err: errors.New("display refused")}
	r := NewReceiver(d, util.NewLogger(false))

	p := r.HandlePush(context.Background(), []byte(`{"title":"t"}`))

	assert.Equal(t, "t", p.Title)
	assert.Len(t, d.shown, 1)
}
