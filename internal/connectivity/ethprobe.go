package connectivity

import (
	"context"

	"github.com/msgctl/netaidkit-nakd/internal/netstatus"
)

// TrackerEthernetProbe adapts a netstatus.Provider into an EthernetProbe,
// so the monitor's "prefer ethernet" check reuses the same link-state
// source the carrier-edge event tracker polls. Each call queries the
// Provider afresh; the tracker's last snapshot is not consulted.
type TrackerEthernetProbe struct {
	Provider netstatus.Provider
}

// WANAvailable implements EthernetProbe.
func (p *TrackerEthernetProbe) WANAvailable(ctx context.Context) (bool, error) {
	snap, err := p.Provider.Query(ctx)
	if err != nil {
		return false, err
	}
	return snap.EthWAN == netstatus.LinkUp, nil
}
