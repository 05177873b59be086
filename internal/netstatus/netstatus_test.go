package netstatus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msgctl/netaidkit-nakd/internal/event"
)

type fakeProvider struct {
	snaps []Snapshot
	i     int
}

func (f *fakeProvider) Query(ctx context.Context) (Snapshot, error) {
	s := f.snaps[f.i]
	if f.i < len(f.snaps)-1 {
		f.i++
	}
	return s, nil
}

func TestFirstPollRecordsBaselineWithNoEvents(t *testing.T) {
	p := &fakeProvider{snaps: []Snapshot{{EthWAN: LinkUp}}}
	tr := NewTracker(p)

	events, err := tr.Poll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestPollEmitsEdgeEventsOnTransition(t *testing.T) {
	p := &fakeProvider{snaps: []Snapshot{
		{EthWAN: LinkDown, Wireless: LinkUp},
		{EthWAN: LinkUp, Wireless: LinkDown},
	}}
	tr := NewTracker(p)

	_, err := tr.Poll(context.Background())
	require.NoError(t, err)

	events, err := tr.Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)

	kinds := map[event.Kind]bool{}
	for _, e := range events {
		kinds[e.Kind] = true
	}
	assert.True(t, kinds[event.EthWanPlugged])
	assert.True(t, kinds[event.WirelessLost])
}

func TestPollEmitsNothingWhenStateUnchanged(t *testing.T) {
	p := &fakeProvider{snaps: []Snapshot{
		{EthWAN: LinkUp},
		{EthWAN: LinkUp},
	}}
	tr := NewTracker(p)
	tr.Poll(context.Background())

	events, err := tr.Poll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
}
