package staking

import (
	"encoding/binary"
	"fmt"

	"lstaking/crypto"
)

// Persisted records are flat, fixed-size little-endian layouts. Fields are
// written in declaration order with no length prefixes; booleans occupy one
// byte and Wide values sixteen (low limb first).

const (
	addrSize = crypto.AddressLength

	GlobalConfigSize = 2*addrSize + 2 + 4 + 8 + 1 + 8 + 8 + 1 + 1
	PoolSize         = 8 + addrSize + addrSize + 8 + 8 + 1 + 4*addrSize + 8 + 8 + 8 + 16 +
		1 + 8 + 2 + 8 + 1 + 1 + 2 + 1 + 8 + addrSize + 8 + 8 + addrSize + 8 + 1 + 1
	PositionSize     = 8 + 2*addrSize + 8 + 8 + 8 + 8 + 8 + 1 + 8 + 1 + 4 + 8 + 8 + 4 + 1
	ClaimEventSize   = 8 + 8
	PenaltyEventSize = 1 + 8 + 8 + 8 + 8 + 1 + 8 + 8 + 2*addrSize + 8 + 8
	UserLedgerSize   = 3*addrSize + 8*6 + 1 + 1 + 1 + 8*3 +
		MaxPositions*PositionSize + HistoryCapacity*ClaimEventSize + HistoryCapacity*PenaltyEventSize + 1
	OracleRecordSize = 2*addrSize + 8 + 8 + 8 + 1
)

type recordWriter struct {
	buf []byte
	off int
}

func newRecordWriter(size int) *recordWriter {
	return &recordWriter{buf: make([]byte, size)}
}

func (w *recordWriter) u8(v uint8) {
	w.buf[w.off] = v
	w.off++
}

func (w *recordWriter) flag(v bool) {
	if v {
		w.u8(1)
		return
	}
	w.u8(0)
}

func (w *recordWriter) u16(v uint16) {
	binary.LittleEndian.PutUint16(w.buf[w.off:], v)
	w.off += 2
}

func (w *recordWriter) u32(v uint32) {
	binary.LittleEndian.PutUint32(w.buf[w.off:], v)
	w.off += 4
}

func (w *recordWriter) u64(v uint64) {
	binary.LittleEndian.PutUint64(w.buf[w.off:], v)
	w.off += 8
}

func (w *recordWriter) i64(v int64) { w.u64(uint64(v)) }

func (w *recordWriter) amount(v Amount) { w.u64(uint64(v)) }

func (w *recordWriter) wide(v Wide) {
	lo, hi := v.Limbs()
	w.u64(lo)
	w.u64(hi)
}

func (w *recordWriter) addr(a crypto.Address) {
	copy(w.buf[w.off:], a[:])
	w.off += addrSize
}

func (w *recordWriter) bytes() []byte { return w.buf }

type recordReader struct {
	buf []byte
	off int
	err error
}

func newRecordReader(data []byte, size int, kind string) (*recordReader, error) {
	if len(data) != size {
		return nil, fmt.Errorf("staking: %s record is %d bytes, want %d", kind, len(data), size)
	}
	return &recordReader{buf: data}, nil
}

func (r *recordReader) u8() uint8 {
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *recordReader) flag() bool {
	v := r.u8()
	if v > 1 && r.err == nil {
		r.err = fmt.Errorf("staking: invalid boolean byte %d at offset %d", v, r.off-1)
	}
	return v == 1
}

func (r *recordReader) u16() uint16 {
	v := binary.LittleEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v
}

func (r *recordReader) u32() uint32 {
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *recordReader) u64() uint64 {
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v
}

func (r *recordReader) i64() int64 { return int64(r.u64()) }

func (r *recordReader) amount() Amount { return Amount(r.u64()) }

func (r *recordReader) wide() Wide {
	lo := r.u64()
	hi := r.u64()
	return WideFromLimbs(lo, hi)
}

func (r *recordReader) addr() crypto.Address {
	var a crypto.Address
	copy(a[:], r.buf[r.off:r.off+addrSize])
	r.off += addrSize
	return a
}

func (r *recordReader) status() PoolStatus {
	s, err := PoolStatusFromByte(r.u8())
	if err != nil && r.err == nil {
		r.err = err
	}
	return s
}

func (r *recordReader) slashType() SlashType {
	s, err := SlashTypeFromByte(r.u8())
	if err != nil && r.err == nil {
		r.err = err
	}
	return s
}

func (r *recordReader) penaltyType() PenaltyType {
	s, err := PenaltyTypeFromByte(r.u8())
	if err != nil && r.err == nil {
		r.err = err
	}
	return s
}

func EncodeGlobalConfig(c *GlobalConfig) []byte {
	w := newRecordWriter(GlobalConfigSize)
	w.addr(c.Authority)
	w.addr(c.Treasury)
	w.u16(c.ProtocolFeeBps)
	w.u32(c.MaxPools)
	w.amount(c.MinStake)
	w.flag(c.EmergencyPause)
	w.u64(c.PoolsCreated)
	w.u64(c.ActivePools)
	w.u8(c.Bump)
	w.u8(c.TreasuryBump)
	return w.bytes()
}

func DecodeGlobalConfig(data []byte) (*GlobalConfig, error) {
	r, err := newRecordReader(data, GlobalConfigSize, "global config")
	if err != nil {
		return nil, err
	}
	c := &GlobalConfig{
		Authority:      r.addr(),
		Treasury:       r.addr(),
		ProtocolFeeBps: r.u16(),
		MaxPools:       r.u32(),
		MinStake:       r.amount(),
		EmergencyPause: r.flag(),
		PoolsCreated:   r.u64(),
		ActivePools:    r.u64(),
		Bump:           r.u8(),
		TreasuryBump:   r.u8(),
	}
	return c, r.err
}

func EncodePool(p *Pool) []byte {
	w := newRecordWriter(PoolSize)
	w.u64(p.PoolID)
	w.addr(p.GlobalConfig)
	w.addr(p.Creator)
	w.i64(p.CreatedAt)
	w.i64(p.LastUpdate)
	w.u8(uint8(p.Status))
	w.addr(p.StakeAsset)
	w.addr(p.RewardAsset)
	w.addr(p.StakeVault)
	w.addr(p.RewardVault)
	w.amount(p.TotalStaked)
	w.amount(p.TotalRewardDistributed)
	w.amount(p.RewardRatePerSecond)
	w.wide(p.AccRewardPerShare)
	w.flag(p.LockEnabled)
	w.i64(p.LockDuration)
	w.u16(p.RewardMultiplier)
	w.u64(p.EarlyWithdrawPenalty)
	w.flag(p.SlashingEnabled)
	w.u8(uint8(p.SlashType))
	w.u16(p.SlashPercentageBps)
	w.u8(p.MinEvidenceRequired)
	w.i64(p.CooldownPeriod)
	w.addr(p.PriceFeed)
	w.amount(p.MaxStakeLimit)
	w.amount(p.MinStake)
	w.addr(p.LSTMint)
	w.amount(p.LSTSupply)
	w.flag(p.EmergencyPaused)
	w.u8(p.Bump)
	return w.bytes()
}

func DecodePool(data []byte) (*Pool, error) {
	r, err := newRecordReader(data, PoolSize, "pool")
	if err != nil {
		return nil, err
	}
	p := &Pool{}
	p.PoolID = r.u64()
	p.GlobalConfig = r.addr()
	p.Creator = r.addr()
	p.CreatedAt = r.i64()
	p.LastUpdate = r.i64()
	p.Status = r.status()
	p.StakeAsset = r.addr()
	p.RewardAsset = r.addr()
	p.StakeVault = r.addr()
	p.RewardVault = r.addr()
	p.TotalStaked = r.amount()
	p.TotalRewardDistributed = r.amount()
	p.RewardRatePerSecond = r.amount()
	p.AccRewardPerShare = r.wide()
	p.LockEnabled = r.flag()
	p.LockDuration = r.i64()
	p.RewardMultiplier = r.u16()
	p.EarlyWithdrawPenalty = r.u64()
	p.SlashingEnabled = r.flag()
	p.SlashType = r.slashType()
	p.SlashPercentageBps = r.u16()
	p.MinEvidenceRequired = r.u8()
	p.CooldownPeriod = r.i64()
	p.PriceFeed = r.addr()
	p.MaxStakeLimit = r.amount()
	p.MinStake = r.amount()
	p.LSTMint = r.addr()
	p.LSTSupply = r.amount()
	p.EmergencyPaused = r.flag()
	p.Bump = r.u8()
	return p, r.err
}

func (w *recordWriter) position(p *StakePosition) {
	w.u64(p.PoolID)
	w.addr(p.Pool)
	w.addr(p.LSTAccount)
	w.amount(p.StakedAmount)
	w.amount(p.LSTTokens)
	w.i64(p.LastRewardUpdate)
	w.amount(p.PendingRewards)
	w.i64(p.StakedAt)
	w.flag(p.LockEnabled)
	w.i64(p.LockExpiry)
	w.flag(p.AutoCompound)
	w.u32(p.CompoundFrequencyHours)
	w.amount(p.MinCompoundAmount)
	w.i64(p.LastCompound)
	w.u32(p.CompoundCount)
	w.flag(p.Active)
}

func (r *recordReader) position() StakePosition {
	var p StakePosition
	p.PoolID = r.u64()
	p.Pool = r.addr()
	p.LSTAccount = r.addr()
	p.StakedAmount = r.amount()
	p.LSTTokens = r.amount()
	p.LastRewardUpdate = r.i64()
	p.PendingRewards = r.amount()
	p.StakedAt = r.i64()
	p.LockEnabled = r.flag()
	p.LockExpiry = r.i64()
	p.AutoCompound = r.flag()
	p.CompoundFrequencyHours = r.u32()
	p.MinCompoundAmount = r.amount()
	p.LastCompound = r.i64()
	p.CompoundCount = r.u32()
	p.Active = r.flag()
	return p
}

func (w *recordWriter) penalty(e *PenaltyEvent) {
	w.u8(uint8(e.Type))
	w.u64(e.ID)
	w.amount(e.Amount)
	w.i64(e.Timestamp)
	w.i64(e.GracePeriodEnd)
	w.flag(e.Resolved)
	w.i64(e.ResolvedAt)
	w.u64(e.PoolID)
	w.addr(e.User)
	w.addr(e.Validator)
	w.amount(e.OriginalStake)
	w.i64(e.RecoveryPeriod)
}

func (r *recordReader) penalty() PenaltyEvent {
	var e PenaltyEvent
	e.Type = r.penaltyType()
	e.ID = r.u64()
	e.Amount = r.amount()
	e.Timestamp = r.i64()
	e.GracePeriodEnd = r.i64()
	e.Resolved = r.flag()
	e.ResolvedAt = r.i64()
	e.PoolID = r.u64()
	e.User = r.addr()
	e.Validator = r.addr()
	e.OriginalStake = r.amount()
	e.RecoveryPeriod = r.i64()
	return e
}

func EncodeUserLedger(l *UserLedger) []byte {
	w := newRecordWriter(UserLedgerSize)
	w.addr(l.Owner)
	w.addr(l.GlobalConfig)
	w.addr(l.SourceAccount)
	w.amount(l.TotalLSTBalance)
	w.amount(l.TotalStakedAmount)
	w.amount(l.TotalEarned)
	w.amount(l.TotalClaimed)
	w.amount(l.PendingRewards)
	w.amount(l.TotalPenalties)
	w.u8(l.ActivePenalties)
	w.u8(l.ActivePositions)
	w.flag(l.Paused)
	w.i64(l.CreatedAt)
	w.i64(l.LastUpdate)
	w.i64(l.LastClaim)
	for i := range l.Positions {
		w.position(&l.Positions[i])
	}
	for _, ev := range l.ClaimHistory {
		w.amount(ev.Amount)
		w.i64(ev.Timestamp)
	}
	for i := range l.PenaltyHistory {
		w.penalty(&l.PenaltyHistory[i])
	}
	w.u8(l.Bump)
	return w.bytes()
}

func DecodeUserLedger(data []byte) (*UserLedger, error) {
	r, err := newRecordReader(data, UserLedgerSize, "user ledger")
	if err != nil {
		return nil, err
	}
	l := &UserLedger{}
	l.Owner = r.addr()
	l.GlobalConfig = r.addr()
	l.SourceAccount = r.addr()
	l.TotalLSTBalance = r.amount()
	l.TotalStakedAmount = r.amount()
	l.TotalEarned = r.amount()
	l.TotalClaimed = r.amount()
	l.PendingRewards = r.amount()
	l.TotalPenalties = r.amount()
	l.ActivePenalties = r.u8()
	l.ActivePositions = r.u8()
	l.Paused = r.flag()
	l.CreatedAt = r.i64()
	l.LastUpdate = r.i64()
	l.LastClaim = r.i64()
	for i := range l.Positions {
		l.Positions[i] = r.position()
	}
	for i := range l.ClaimHistory {
		l.ClaimHistory[i] = ClaimEvent{Amount: r.amount(), Timestamp: r.i64()}
	}
	for i := range l.PenaltyHistory {
		l.PenaltyHistory[i] = r.penalty()
	}
	l.Bump = r.u8()
	return l, r.err
}

func EncodeOracleRecord(o *OracleRecord) []byte {
	w := newRecordWriter(OracleRecordSize)
	w.addr(o.PriceFeed)
	w.addr(o.Authority)
	w.i64(o.UpdateFrequency)
	w.i64(o.LastUpdate)
	w.u64(o.Price)
	w.u8(o.Bump)
	return w.bytes()
}

func DecodeOracleRecord(data []byte) (*OracleRecord, error) {
	r, err := newRecordReader(data, OracleRecordSize, "oracle")
	if err != nil {
		return nil, err
	}
	o := &OracleRecord{
		PriceFeed:       r.addr(),
		Authority:       r.addr(),
		UpdateFrequency: r.i64(),
		LastUpdate:      r.i64(),
		Price:           r.u64(),
		Bump:            r.u8(),
	}
	return o, r.err
}
