package service

import (
	"testing"
)

func newRebalanceFixture(min, max, hot int64) (*RebalanceService, *fakeChain, *fakeAlerter) {
	chain := &fakeChain{balance: hot, submitTxID: validTxID}
	alerter := &fakeAlerter{}
	svc := NewRebalanceService(chain, alerter, Config{
		HotAddress:     testAddress,
		ReserveAddress: testAddress,
		MinThreshold:   min,
		MaxThreshold:   max,
	})
	return svc, chain, alerter
}

func TestCheckSurplusExample(t *testing.T) {
	// min=10 max=100 hot=150 waiting=20: limit=55, transfer=75.
	svc, chain, _ := newRebalanceFixture(10, 100, 150)

	req, err := svc.CheckSurplus(20)
	if err != nil {
		t.Fatalf("surplus: %v", err)
	}
	if req == nil {
		t.Fatal("expected a transfer")
	}
	if req.Amount != 75 {
		t.Errorf("transfer value: expected 75, got %d", req.Amount)
	}
	if req.TxID != validTxID {
		t.Errorf("tx id not propagated")
	}
	if len(chain.submits) != 1 || chain.submits[0].amount != 75 {
		t.Errorf("unexpected submissions: %+v", chain.submits)
	}

	// Projected balance lands exactly on the midpoint.
	if projected := chain.balance - 20 - req.Amount; projected != 55 {
		t.Errorf("projected balance: expected 55, got %d", projected)
	}
}

func TestCheckDeficitExample(t *testing.T) {
	// min=20 max=100 hot=5 waiting=8: limit=60, deficit=63.
	svc, chain, _ := newRebalanceFixture(20, 100, 5)

	deficit, short, err := svc.CheckDeficit(8)
	if err != nil {
		t.Fatalf("deficit: %v", err)
	}
	if !short {
		t.Fatal("expected a deficit")
	}
	if deficit != 63 {
		t.Errorf("deficit: expected 63, got %d", deficit)
	}
	if len(chain.submits) != 0 {
		t.Errorf("deficit path must not move funds")
	}
}

func TestRebalanceExactlyOneOutcome(t *testing.T) {
	cases := []struct {
		name          string
		hot, waiting  int64
		wantSurplus   bool
		wantShortfall bool
	}{
		{"well inside band", 50, 0, false, false},
		{"at min", 10, 0, false, false},
		{"at max", 100, 0, false, false},
		{"just above max", 101, 0, true, false},
		{"just below min", 9, 0, false, true},
		{"waiting pushes below min", 25, 20, false, true},
		{"waiting pulls inside band", 110, 20, false, false},
		{"big surplus", 1000, 100, true, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _, _ := newRebalanceFixture(10, 100, tc.hot)

			req, err := svc.CheckSurplus(tc.waiting)
			if err != nil {
				t.Fatalf("surplus: %v", err)
			}
			_, short, err := svc.CheckDeficit(tc.waiting)
			if err != nil {
				t.Fatalf("deficit: %v", err)
			}

			if (req != nil) != tc.wantSurplus {
				t.Errorf("surplus: expected %v, got %v", tc.wantSurplus, req != nil)
			}
			if short != tc.wantShortfall {
				t.Errorf("shortfall: expected %v, got %v", tc.wantShortfall, short)
			}
			if req != nil && short {
				t.Error("surplus and deficit at once")
			}
		})
	}
}

func TestCheckSurplusMalformedTxID(t *testing.T) {
	svc, _, alerter := newRebalanceFixture(10, 100, 150)
	svc.chain.(*fakeChain).submitTxID = "broken"

	req, err := svc.CheckSurplus(20)
	if err == nil {
		t.Fatal("malformed tx id on the transfer path must be fatal")
	}
	if req != nil {
		t.Errorf("no transfer must be reported on anomaly")
	}
	if len(alerter.transferAnomalies) != 1 {
		t.Errorf("anomaly not surfaced to operator")
	}
}

func TestCheckSurplusNoTransferNeeded(t *testing.T) {
	svc, chain, _ := newRebalanceFixture(10, 100, 90)

	req, err := svc.CheckSurplus(0)
	if err != nil {
		t.Fatalf("surplus: %v", err)
	}
	if req != nil {
		t.Errorf("unexpected transfer: %+v", req)
	}
	if len(chain.submits) != 0 {
		t.Errorf("network write without surplus")
	}
}

func TestSnapshot(t *testing.T) {
	svc, _, _ := newRebalanceFixture(10, 100, 42)

	snap, err := svc.Snapshot(7)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.HotBalance != 42 || snap.WaitingPayments != 7 || snap.MinThreshold != 10 || snap.MaxThreshold != 100 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}
