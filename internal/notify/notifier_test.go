package notify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"
)

type fakeSender struct {
	sent    []int64
	failIDs map[int64]bool
}

func (f *fakeSender) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	id := recipientID(to)
	if f.failIDs[id] {
		return nil, errors.New("blocked by user")
	}
	f.sent = append(f.sent, id)
	return &tele.Message{}, nil
}

func (f *fakeSender) Forward(to tele.Recipient, msg tele.Editable, opts ...interface{}) (*tele.Message, error) {
	return f.Send(to, msg)
}

func recipientID(to tele.Recipient) int64 {
	var id int64
	for _, c := range to.Recipient() {
		id = id*10 + int64(c-'0')
	}
	return id
}

func TestNotifyAdmins(t *testing.T) {
	sender := &fakeSender{failIDs: map[int64]bool{200: true}}
	n := New(sender, []int64{100, 200, 300})

	results := n.NotifyAdmins("pending payment")

	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
	assert.Equal(t, []int64{100, 300}, sender.sent)
}

func TestSendTo(t *testing.T) {
	sender := &fakeSender{failIDs: map[int64]bool{}}
	n := New(sender, nil)

	require.NoError(t, n.SendTo(42, "approved"))
	assert.Equal(t, []int64{42}, sender.sent)

	sender.failIDs[43] = true
	assert.Error(t, n.SendTo(43, "approved"))
}

func TestBroadcastCountsFailures(t *testing.T) {
	sender := &fakeSender{failIDs: map[int64]bool{2: true, 4: true}}
	n := New(sender, nil)

	report := n.Broadcast([]int64{1, 2, 3, 4, 5}, "announcement", 0)

	assert.Equal(t, 3, report.Sent)
	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, []int64{1, 3, 5}, sender.sent)
}

func TestBroadcastEmpty(t *testing.T) {
	sender := &fakeSender{}
	n := New(sender, nil)

	report := n.Broadcast(nil, "announcement", 0)

	assert.Equal(t, 0, report.Sent)
	assert.Equal(t, 0, report.Failed)
}
