package data

import (
	"context"
	"time"

	"bonanza/encoding"
	"bonanza/internal/biz"

	"github.com/shopspring/decimal"
	"github.com/yola1107/kratos/v2/log"
)

// spinJournal is one row of the spin journal table.
type spinJournal struct {
	Id         int64     `xorm:"pk autoincr"`
	SpinId     string    `xorm:"varchar(64) notnull index"`
	Bet        string    `xorm:"varchar(32) notnull"`
	BuyFeature bool      `xorm:"notnull default 0"`
	Enhanced   bool      `xorm:"notnull default 0"`
	Bonus      bool      `xorm:"notnull default 0"`
	TotalWin   string    `xorm:"varchar(32) notnull"`
	Credited   string    `xorm:"varchar(32) notnull"`
	Multiplier int       `xorm:"notnull default 0"`
	Tumbles    int       `xorm:"notnull default 0"`
	FreeSpins  int       `xorm:"notnull default 0"`
	Balance    string    `xorm:"varchar(32)"`
	Error      string    `xorm:"varchar(512)"`
	CreatedAt  time.Time `xorm:"created"`
}

func (spinJournal) TableName() string { return "spin_journal" }

type journalRepo struct {
	data *Data
	log  *log.Helper
}

// NewJournalRepo .
func NewJournalRepo(data *Data, logger log.Logger) biz.JournalRepo {
	return &journalRepo{
		data: data,
		log:  log.NewHelper(log.With(logger, "module", "data/journal")),
	}
}

func (r *journalRepo) Save(ctx context.Context, rec *biz.SpinRecord) error {
	row := toJournal(rec)
	if r.data.db == nil {
		r.log.WithContext(ctx).Infof("spin journal: %s", encoding.ToJson(row))
		return nil
	}
	_, err := r.data.db.Context(ctx).Insert(row)
	return err
}

func (r *journalRepo) Recent(ctx context.Context, limit int) ([]*biz.SpinRecord, error) {
	if r.data.db == nil {
		return nil, nil
	}
	var rows []spinJournal
	if err := r.data.db.Context(ctx).Desc("id").Limit(limit).Find(&rows); err != nil {
		return nil, err
	}
	out := make([]*biz.SpinRecord, 0, len(rows))
	for i := range rows {
		out = append(out, fromJournal(&rows[i]))
	}
	return out, nil
}

func toJournal(rec *biz.SpinRecord) *spinJournal {
	return &spinJournal{
		SpinId:     rec.ID,
		Bet:        rec.Bet.String(),
		BuyFeature: rec.BuyFeature,
		Enhanced:   rec.Enhanced,
		Bonus:      rec.Bonus,
		TotalWin:   rec.TotalWin.String(),
		Credited:   rec.Credited.String(),
		Multiplier: rec.Multiplier,
		Tumbles:    rec.Tumbles,
		FreeSpins:  rec.FreeSpins,
		Balance:    rec.Balance.String(),
		Error:      rec.Error,
		CreatedAt:  rec.CreatedAt,
	}
}

func fromJournal(row *spinJournal) *biz.SpinRecord {
	return &biz.SpinRecord{
		ID:         row.SpinId,
		Bet:        parseMoney(row.Bet),
		BuyFeature: row.BuyFeature,
		Enhanced:   row.Enhanced,
		Bonus:      row.Bonus,
		TotalWin:   parseMoney(row.TotalWin),
		Credited:   parseMoney(row.Credited),
		Multiplier: row.Multiplier,
		Tumbles:    row.Tumbles,
		FreeSpins:  row.FreeSpins,
		Balance:    parseMoney(row.Balance),
		Error:      row.Error,
		CreatedAt:  row.CreatedAt,
	}
}

func parseMoney(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
