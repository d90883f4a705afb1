package graph

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	subject string
	data    []byte
	err     error
}

func (p *recordingPublisher) PublishToStream(_ context.Context, subject string, data []byte) error {
	p.subject = subject
	p.data = data
	return p.err
}

func TestPublishUpdates(t *testing.T) {
	pub := &recordingPublisher{}
	groups := []string{"DELETE {} WHERE {};\nINSERT DATA {};", "INSERT DATA {};"}

	require.NoError(t, PublishUpdates(context.Background(), pub, "", "people", groups))
	assert.Equal(t, UpdateSubject, pub.subject)

	var wire struct {
		Type struct {
			Domain   string `json:"domain"`
			Category string `json:"category"`
		} `json:"type"`
		Payload UpdatePayload `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(pub.data, &wire))
	assert.Equal(t, "graph", wire.Type.Domain)
	assert.Equal(t, "update", wire.Type.Category)
	assert.Equal(t, "people", wire.Payload.Pipeline)
	assert.Equal(t, groups, wire.Payload.Groups)
}

func TestPublishUpdates_Errors(t *testing.T) {
	ctx := context.Background()

	assert.Error(t, PublishUpdates(ctx, nil, "", "p", []string{"x"}))
	assert.Error(t, PublishUpdates(ctx, &recordingPublisher{}, "", "p", nil))

	pub := &recordingPublisher{err: errors.New("stream not found")}
	err := PublishUpdates(ctx, pub, "custom.subject", "p", []string{"x"})
	require.Error(t, err)
	assert.Equal(t, "custom.subject", pub.subject)
}

func TestUpdatePayload_Validate(t *testing.T) {
	assert.Error(t, (&UpdatePayload{}).Validate())
	assert.Error(t, (&UpdatePayload{Groups: []string{""}}).Validate())
	assert.NoError(t, (&UpdatePayload{Groups: []string{"INSERT DATA {};"}}).Validate())
	assert.Equal(t, UpdateType, (&UpdatePayload{}).Schema())
}

type fakeStreams struct {
	exists  bool
	created []jetstream.StreamConfig
	err     error
}

func (f *fakeStreams) GetStream(_ context.Context, name string) (jetstream.Stream, error) {
	if f.exists {
		return nil, nil
	}
	return nil, jetstream.ErrStreamNotFound
}

func (f *fakeStreams) CreateStream(_ context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	f.created = append(f.created, cfg)
	return nil, f.err
}

func TestEnsureUpdateStream(t *testing.T) {
	ctx := context.Background()

	m := &fakeStreams{}
	require.NoError(t, EnsureUpdateStream(ctx, m, ""))
	require.Len(t, m.created, 1)
	assert.Equal(t, UpdateStream, m.created[0].Name)
	assert.Equal(t, []string{UpdateSubject}, m.created[0].Subjects)

	m = &fakeStreams{exists: true}
	require.NoError(t, EnsureUpdateStream(ctx, m, "harvest.updates"))
	assert.Empty(t, m.created)

	m = &fakeStreams{err: errors.New("insufficient resources")}
	assert.ErrorContains(t, EnsureUpdateStream(ctx, m, "harvest.updates"), UpdateStream)
	assert.Equal(t, []string{"harvest.updates"}, m.created[0].Subjects)
}
