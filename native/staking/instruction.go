package staking

import (
	"encoding/binary"
	"fmt"

	"lstaking/crypto"
)

// Opcode is the one-byte discriminator leading every instruction.
type Opcode uint8

const (
	OpInitGlobalConfig Opcode = iota
	OpUpdateAuthority
	OpUpdateProtocolFee
	OpSetGlobalEmergencyPause
	OpCreatePool
	OpUpdatePoolConfig
	OpPausePool
	OpResumePool
	OpFundRewardVault
	OpInitUserLedger
	OpStake
	OpIncreaseStake
	OpUnstake
	OpClaimRewards
	OpClaimAllRewards
	OpExecuteAutoCompound
	OpEnableAutoCompound
	OpDisableAutoCompound
	OpEmergencyWithdraw
	OpInitOracle
	OpUpdateOraclePrice
)

var opcodeNames = [...]string{
	"initGlobalConfig", "updateAuthority", "updateProtocolFee", "setGlobalEmergencyPause",
	"createPool", "updatePoolConfig", "pausePool", "resumePool", "fundRewardVault",
	"initUserLedger", "stake", "increaseStake", "unstake", "claimRewards",
	"claimAllRewards", "executeAutoCompound", "enableAutoCompound", "disableAutoCompound",
	"emergencyWithdraw", "initOracle", "updateOraclePrice",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return fmt.Sprintf("op(%d)", uint8(op))
}

// ParseOpcode resolves an opcode by name.
func ParseOpcode(name string) (Opcode, error) {
	for i, n := range opcodeNames {
		if n == name {
			return Opcode(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown instruction %q", ErrInvalidInstruction, name)
}

// Instruction is a decoded instruction payload. Only the members used by Op
// are meaningful.
type Instruction struct {
	Op              Opcode
	PoolID          uint64
	Amount          Amount
	FeeBps          uint16
	Flag            bool
	Address         crypto.Address
	Global          GlobalParams
	Pool            PoolParams
	Update          PoolUpdate
	FrequencyHours  uint32
	MinAmount       Amount
	UpdateFrequency int64
	Price           uint64
}

type payloadReader struct {
	buf []byte
	off int
	err error
}

func (r *payloadReader) take(n int) []byte {
	if r.err != nil {
		return make([]byte, n)
	}
	if len(r.buf)-r.off < n {
		r.err = fmt.Errorf("%w: payload truncated at offset %d", ErrInvalidInstruction, r.off)
		return make([]byte, n)
	}
	out := r.buf[r.off : r.off+n]
	r.off += n
	return out
}

func (r *payloadReader) u8() uint8   { return r.take(1)[0] }
func (r *payloadReader) u16() uint16 { return binary.LittleEndian.Uint16(r.take(2)) }
func (r *payloadReader) u32() uint32 { return binary.LittleEndian.Uint32(r.take(4)) }
func (r *payloadReader) u64() uint64 { return binary.LittleEndian.Uint64(r.take(8)) }
func (r *payloadReader) i64() int64  { return int64(r.u64()) }

func (r *payloadReader) flag() bool {
	v := r.u8()
	if v > 1 && r.err == nil {
		r.err = fmt.Errorf("%w: boolean byte %d", ErrInvalidInstruction, v)
	}
	return v == 1
}

func (r *payloadReader) addr() crypto.Address {
	var a crypto.Address
	copy(a[:], r.take(crypto.AddressLength))
	return a
}

// DecodeInstruction parses data. Short payloads fail with
// ErrInvalidInstruction; trailing bytes are ignored.
func DecodeInstruction(data []byte) (Instruction, error) {
	if len(data) == 0 {
		return Instruction{}, fmt.Errorf("%w: empty payload", ErrInvalidInstruction)
	}
	ins := Instruction{Op: Opcode(data[0])}
	r := &payloadReader{buf: data[1:]}
	switch ins.Op {
	case OpInitGlobalConfig:
		ins.Global.ProtocolFeeBps = r.u16()
		ins.Global.MinStake = Amount(r.u64())
		ins.Global.MaxPools = r.u32()
	case OpUpdateAuthority:
		ins.Address = r.addr()
	case OpUpdateProtocolFee:
		ins.FeeBps = r.u16()
	case OpSetGlobalEmergencyPause:
		ins.Flag = r.flag()
	case OpCreatePool:
		p := &ins.Pool
		p.PoolID = r.u64()
		p.RewardRatePerSecond = Amount(r.u64())
		p.LockEnabled = r.flag()
		p.LockDuration = r.i64()
		p.RewardMultiplier = r.u16()
		p.EarlyWithdrawPenalty = r.u64()
		p.SlashingEnabled = r.flag()
		p.SlashType = SlashType(r.u8())
		p.SlashPercentageBps = r.u16()
		p.MinEvidenceRequired = r.u8()
		p.CooldownPeriod = r.i64()
		p.MaxStakeLimit = Amount(r.u64())
		p.MinStake = Amount(r.u64())
		ins.PoolID = p.PoolID
		if r.err == nil {
			if _, err := SlashTypeFromByte(uint8(p.SlashType)); err != nil {
				return Instruction{}, err
			}
		}
	case OpUpdatePoolConfig:
		decodeUpdate(r, &ins.Update)
		ins.PoolID = ins.Update.PoolID
	case OpPausePool, OpResumePool, OpClaimRewards, OpExecuteAutoCompound,
		OpDisableAutoCompound, OpEmergencyWithdraw:
		ins.PoolID = r.u64()
	case OpFundRewardVault, OpStake, OpIncreaseStake, OpUnstake:
		ins.PoolID = r.u64()
		ins.Amount = Amount(r.u64())
	case OpInitUserLedger, OpClaimAllRewards:
	case OpEnableAutoCompound:
		ins.PoolID = r.u64()
		ins.FrequencyHours = r.u32()
		ins.MinAmount = Amount(r.u64())
	case OpInitOracle:
		ins.UpdateFrequency = r.i64()
		ins.Price = r.u64()
	case OpUpdateOraclePrice:
		ins.Price = r.u64()
	default:
		return Instruction{}, fmt.Errorf("%w: unknown discriminator %d", ErrInvalidInstruction, data[0])
	}
	if r.err != nil {
		return Instruction{}, fmt.Errorf("%s: %w", ins.Op, r.err)
	}
	return ins, nil
}

func decodeUpdate(r *payloadReader, u *PoolUpdate) {
	u.Field = PoolField(r.u8())
	u.PoolID = r.u64()
	switch u.Field {
	case FieldRewardRate, FieldEarlyWithdrawPenalty, FieldMaxStakeLimit, FieldMinStake:
		u.Uint = r.u64()
	case FieldLockDuration, FieldCooldownPeriod:
		u.Int = r.i64()
	case FieldRewardMultiplier, FieldSlashPercentage:
		u.Uint = uint64(r.u16())
	case FieldMinEvidence, FieldSlashType, FieldStatus:
		u.Uint = uint64(r.u8())
	case FieldLockEnabled, FieldSlashingEnabled, FieldEmergencyPause:
		u.Flag = r.flag()
	case FieldPriceFeed:
	default:
		if r.err == nil {
			r.err = fmt.Errorf("%w: unknown pool field %d", ErrInvalidInstruction, uint8(u.Field))
		}
	}
}

type payloadWriter struct {
	buf []byte
}

func (w *payloadWriter) u8(v uint8) { w.buf = append(w.buf, v) }
func (w *payloadWriter) u16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}
func (w *payloadWriter) u32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}
func (w *payloadWriter) u64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}
func (w *payloadWriter) i64(v int64) { w.u64(uint64(v)) }
func (w *payloadWriter) addr(a crypto.Address) {
	w.buf = append(w.buf, a[:]...)
}
func (w *payloadWriter) flag(v bool) {
	if v {
		w.u8(1)
		return
	}
	w.u8(0)
}

// Encode renders ins in wire form. It is the inverse of DecodeInstruction.
func (ins Instruction) Encode() []byte {
	w := &payloadWriter{buf: []byte{byte(ins.Op)}}
	switch ins.Op {
	case OpInitGlobalConfig:
		w.u16(ins.Global.ProtocolFeeBps)
		w.u64(uint64(ins.Global.MinStake))
		w.u32(ins.Global.MaxPools)
	case OpUpdateAuthority:
		w.addr(ins.Address)
	case OpUpdateProtocolFee:
		w.u16(ins.FeeBps)
	case OpSetGlobalEmergencyPause:
		w.flag(ins.Flag)
	case OpCreatePool:
		p := ins.Pool
		w.u64(p.PoolID)
		w.u64(uint64(p.RewardRatePerSecond))
		w.flag(p.LockEnabled)
		w.i64(p.LockDuration)
		w.u16(p.RewardMultiplier)
		w.u64(p.EarlyWithdrawPenalty)
		w.flag(p.SlashingEnabled)
		w.u8(uint8(p.SlashType))
		w.u16(p.SlashPercentageBps)
		w.u8(p.MinEvidenceRequired)
		w.i64(p.CooldownPeriod)
		w.u64(uint64(p.MaxStakeLimit))
		w.u64(uint64(p.MinStake))
	case OpUpdatePoolConfig:
		u := ins.Update
		w.u8(uint8(u.Field))
		w.u64(u.PoolID)
		switch u.Field {
		case FieldRewardRate, FieldEarlyWithdrawPenalty, FieldMaxStakeLimit, FieldMinStake:
			w.u64(u.Uint)
		case FieldLockDuration, FieldCooldownPeriod:
			w.i64(u.Int)
		case FieldRewardMultiplier, FieldSlashPercentage:
			w.u16(uint16(u.Uint))
		case FieldMinEvidence, FieldSlashType, FieldStatus:
			w.u8(uint8(u.Uint))
		case FieldLockEnabled, FieldSlashingEnabled, FieldEmergencyPause:
			w.flag(u.Flag)
		}
	case OpPausePool, OpResumePool, OpClaimRewards, OpExecuteAutoCompound,
		OpDisableAutoCompound, OpEmergencyWithdraw:
		w.u64(ins.PoolID)
	case OpFundRewardVault, OpStake, OpIncreaseStake, OpUnstake:
		w.u64(ins.PoolID)
		w.u64(uint64(ins.Amount))
	case OpEnableAutoCompound:
		w.u64(ins.PoolID)
		w.u32(ins.FrequencyHours)
		w.u64(uint64(ins.MinAmount))
	case OpInitOracle:
		w.i64(ins.UpdateFrequency)
		w.u64(ins.Price)
	case OpUpdateOraclePrice:
		w.u64(ins.Price)
	}
	return w.buf
}

// Role names one member of Accounts in an instruction's account layout.
type Role uint8

const (
	RoleAuthority Role = iota
	RoleCreator
	RoleGlobalConfig
	RoleTreasury
	RolePool
	RoleStakeMint
	RoleRewardMint
	RoleStakeVault
	RoleRewardVault
	RoleLSTMint
	RolePriceFeed
	RoleUserLedger
	RoleOracle
)

func (acc *Accounts) slot(role Role) *crypto.Address {
	switch role {
	case RoleAuthority:
		return &acc.Authority
	case RoleCreator:
		return &acc.Creator
	case RoleGlobalConfig:
		return &acc.GlobalConfig
	case RoleTreasury:
		return &acc.Treasury
	case RolePool:
		return &acc.Pool
	case RoleStakeMint:
		return &acc.StakeMint
	case RoleRewardMint:
		return &acc.RewardMint
	case RoleStakeVault:
		return &acc.StakeVault
	case RoleRewardVault:
		return &acc.RewardVault
	case RoleLSTMint:
		return &acc.LSTMint
	case RolePriceFeed:
		return &acc.PriceFeed
	case RoleUserLedger:
		return &acc.UserLedger
	default:
		return &acc.Oracle
	}
}

var (
	adminLayout = []Role{RoleAuthority, RoleGlobalConfig}
	stakeLayout = []Role{RoleAuthority, RoleCreator, RoleGlobalConfig, RolePool, RoleUserLedger, RoleStakeVault, RoleLSTMint}
	poolLayout  = []Role{RoleCreator, RolePool}

	accountLayouts = map[Opcode][]Role{
		OpInitGlobalConfig:        {RoleAuthority, RoleGlobalConfig, RoleTreasury},
		OpUpdateAuthority:         adminLayout,
		OpUpdateProtocolFee:       adminLayout,
		OpSetGlobalEmergencyPause: adminLayout,
		OpCreatePool: {RoleAuthority, RoleCreator, RoleGlobalConfig, RolePool, RoleStakeMint,
			RoleRewardMint, RoleStakeVault, RoleRewardVault, RoleLSTMint, RolePriceFeed},
		OpUpdatePoolConfig: {RoleCreator, RolePool, RolePriceFeed},
		OpPausePool:        poolLayout,
		OpResumePool:       poolLayout,
		OpFundRewardVault:  {RoleCreator, RolePool, RoleRewardVault},
		OpInitUserLedger:   {RoleAuthority, RoleGlobalConfig, RoleUserLedger},
		OpStake:            stakeLayout,
		OpIncreaseStake:    stakeLayout,
		OpUnstake: {RoleAuthority, RoleCreator, RoleGlobalConfig, RolePool, RoleUserLedger,
			RoleStakeVault, RoleLSTMint, RoleRewardVault, RoleTreasury},
		OpClaimRewards: {RoleAuthority, RoleCreator, RoleGlobalConfig, RolePool, RoleUserLedger,
			RoleRewardVault, RoleTreasury},
		OpClaimAllRewards: {RoleAuthority, RoleGlobalConfig, RoleUserLedger, RoleRewardMint,
			RoleRewardVault, RoleTreasury},
		OpExecuteAutoCompound: {RoleAuthority, RoleCreator, RoleGlobalConfig, RolePool, RoleUserLedger,
			RoleStakeVault, RoleRewardVault, RoleLSTMint, RoleTreasury},
		OpEnableAutoCompound:  {RoleAuthority, RoleGlobalConfig, RoleUserLedger},
		OpDisableAutoCompound: {RoleAuthority, RoleGlobalConfig, RoleUserLedger},
		OpEmergencyWithdraw: {RoleAuthority, RoleCreator, RoleGlobalConfig, RolePool, RoleUserLedger,
			RoleStakeVault, RoleLSTMint, RoleRewardVault, RoleTreasury},
		OpInitOracle:        {RoleOracle, RolePriceFeed},
		OpUpdateOraclePrice: {RoleOracle},
	}
)

// AccountLayout returns the ordered roles op expects in its account list.
func AccountLayout(op Opcode) ([]Role, error) {
	layout, ok := accountLayouts[op]
	if !ok {
		return nil, fmt.Errorf("%w: unknown discriminator %d", ErrInvalidInstruction, uint8(op))
	}
	return layout, nil
}

// BindAccounts maps an ordered account list onto Accounts using op's
// layout. Extra references are ignored.
func BindAccounts(op Opcode, refs []crypto.Address) (Accounts, error) {
	layout, err := AccountLayout(op)
	if err != nil {
		return Accounts{}, err
	}
	if len(refs) < len(layout) {
		return Accounts{}, fmt.Errorf("%w: %s needs %d accounts, got %d", ErrInvalidAccount, op, len(layout), len(refs))
	}
	var acc Accounts
	for i, role := range layout {
		*acc.slot(role) = refs[i]
	}
	return acc, nil
}

// AccountList is the inverse of BindAccounts.
func AccountList(op Opcode, acc Accounts) ([]crypto.Address, error) {
	layout, err := AccountLayout(op)
	if err != nil {
		return nil, err
	}
	out := make([]crypto.Address, len(layout))
	for i, role := range layout {
		out[i] = *acc.slot(role)
	}
	return out, nil
}
