package biz

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/yola1107/kratos/v2/log"
)

// FreeSpinPlayer plays a server pre-computed free-spin batch back entry by entry.
type FreeSpinPlayer struct {
	rp      *Replayer
	bonus   *BonusMachine
	overlay *OverlayQueue
	sess    *session
	bus     *Bus
	log     *log.Helper
}

func newFreeSpinPlayer(rp *Replayer, bonus *BonusMachine, overlay *OverlayQueue, sess *session, bus *Bus, logger log.Logger) *FreeSpinPlayer {
	return &FreeSpinPlayer{
		rp:      rp,
		bonus:   bonus,
		overlay: overlay,
		sess:    sess,
		bus:     bus,
		log:     log.NewHelper(log.With(logger, "module", "biz/freespin")),
	}
}

// Play replays every entry. The next entry starts only once the previous one's
// animations and overlays are done. It returns the batch's credited total.
func (p *FreeSpinPlayer) Play(ctx context.Context, spinID string, entries []FreeSpinEntry, bet decimal.Decimal) (decimal.Decimal, error) {
	total := decimal.Zero
	if len(entries) == 0 {
		return total, nil
	}
	p.sess.update(func(s *SessionState) {
		s.UsesAPIFreeSpins = true
		s.APIFreeSpinList = entries
		s.APIFreeSpinIndex = 0
		s.FreeSpinsRemaining = len(entries)
	})
	p.log.Infof("spin %s: playing %d api free spins", spinID, len(entries))

	for i := range entries {
		e := &entries[i]
		id := fmt.Sprintf("%s-fs%d", spinID, i+1)
		res, err := p.rp.Replay(ctx, id, e.Grid, e.Tumbles, bet, true)
		if err != nil {
			return total, fmt.Errorf("free spin %d: %w", i+1, err)
		}
		if _, err := p.bonus.CheckScatter(ctx, res.Grid); err != nil {
			return total, err
		}
		p.overlay.Enqueue(res.Credited, bet)
		total = total.Add(res.Credited)

		// the batch length is authoritative; retrigger grants are already part of it
		p.sess.update(func(s *SessionState) {
			s.TotalBonusWin = s.TotalBonusWin.Add(res.Credited)
			s.TotalWinThisSpin = s.TotalWinThisSpin.Add(res.Credited)
			s.APIFreeSpinIndex = i + 1
			s.FreeSpinsRemaining = len(entries) - i - 1
		})

		if err := p.overlay.WaitIdle(ctx); err != nil {
			return total, err
		}
	}
	return total, nil
}
