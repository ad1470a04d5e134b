package staking

import (
	"errors"
	"fmt"
)

var (
	errNilState  = errors.New("staking: state not configured")
	errNilLedger = errors.New("staking: asset ledger not configured")
	errNilClock  = errors.New("staking: clock not configured")
)

// Structural failures. They are raised before any record is touched.
var (
	ErrMissingSignature   = errors.New("staking: missing required signature")
	ErrInvalidAccount     = errors.New("staking: invalid account")
	ErrInvalidInstruction = errors.New("staking: invalid instruction data")
	ErrUnauthorized       = errors.New("staking: unauthorized")
	ErrAlreadyInitialized = errors.New("staking: account already initialized")
	ErrNotInitialized     = errors.New("staking: account not initialized")
	ErrInvalidEnum        = errors.New("staking: unknown enum value")
)

// Domain preconditions.
var (
	ErrInvalidArgument               = errors.New("staking: invalid argument")
	ErrPoolNotFound                  = errors.New("staking: pool not found")
	ErrPositionNotFound              = errors.New("staking: position not found")
	ErrPositionCapacityExceeded      = errors.New("staking: position capacity exceeded")
	ErrInsufficientFunds             = errors.New("staking: insufficient funds")
	ErrNoEmergencyCondition          = errors.New("staking: no emergency condition")
	ErrNothingToWithdraw             = errors.New("staking: nothing to withdraw")
	ErrNothingToClaim                = errors.New("staking: nothing to claim")
	ErrInsufficientVaultBalance      = errors.New("staking: insufficient reward vault balance")
	ErrUserPaused                    = errors.New("staking: user ledger paused")
	ErrGlobalPaused                  = errors.New("staking: global emergency pause")
	ErrPoolEmergencyPaused           = errors.New("staking: pool emergency paused")
	ErrPoolNotActive                 = errors.New("staking: pool not active")
	ErrAutoCompoundDisabled          = errors.New("staking: auto-compound disabled")
	ErrBelowMinimumCompound          = errors.New("staking: rewards below minimum compound amount")
	ErrIntervalNotElapsed            = errors.New("staking: compound interval not elapsed")
	ErrUnsupportedCrossAssetCompound = errors.New("staking: cross-asset compound unsupported")
	ErrPoolConfigFrozen              = errors.New("staking: pool configuration frozen by emergency pause")
	ErrInvalidStatusTransition       = errors.New("staking: invalid pool status transition")
	ErrMaxPoolsReached               = errors.New("staking: maximum pool count reached")

	ErrBelowMinimumStake  = fmt.Errorf("%w: amount below minimum stake", ErrInvalidArgument)
	ErrStakeLimitExceeded = fmt.Errorf("%w: pool stake limit exceeded", ErrInvalidArgument)
	ErrDuplicatePosition  = fmt.Errorf("%w: active position already open for pool", ErrInvalidArgument)
)

// Code is a stable numeric identifier callers can branch on.
type Code uint32

const (
	CodeUnknown Code = 0

	CodeMissingSignature   Code = 100
	CodeInvalidAccount     Code = 101
	CodeInvalidInstruction Code = 102
	CodeUnauthorized       Code = 103
	CodeAlreadyInitialized Code = 104
	CodeNotInitialized     Code = 105
	CodeInvalidEnum        Code = 106
	CodeInvalidArgument    Code = 107
	CodeInsufficientFunds  Code = 108
	CodeCapacityExceeded   Code = 109
	CodeConfigFrozen       Code = 110
	CodeStatusTransition   Code = 111
	CodePoolNotActive      Code = 112
	CodeMaxPoolsReached    Code = 113

	CodePoolNotFound          Code = 1001
	CodePositionNotFound      Code = 1002
	CodeNoEmergencyCondition  Code = 2001
	CodeNothingToWithdraw     Code = 2002
	CodeNothingToClaim        Code = 3001
	CodeInsufficientVault     Code = 3002
	CodeUserPaused            Code = 4001
	CodeGlobalPaused          Code = 4002
	CodePoolEmergencyPaused   Code = 4003
	CodeAutoCompoundDisabled  Code = 5001
	CodeBelowMinimumCompound  Code = 5002
	CodeIntervalNotElapsed    Code = 5004
	CodeCrossAssetUnsupported Code = 5005
)

// Ordered so that the most specific sentinel wins when errors wrap others.
var errorCodes = []struct {
	err  error
	code Code
}{
	{ErrPoolNotFound, CodePoolNotFound},
	{ErrPositionNotFound, CodePositionNotFound},
	{ErrNoEmergencyCondition, CodeNoEmergencyCondition},
	{ErrNothingToWithdraw, CodeNothingToWithdraw},
	{ErrNothingToClaim, CodeNothingToClaim},
	{ErrInsufficientVaultBalance, CodeInsufficientVault},
	{ErrUserPaused, CodeUserPaused},
	{ErrGlobalPaused, CodeGlobalPaused},
	{ErrPoolEmergencyPaused, CodePoolEmergencyPaused},
	{ErrAutoCompoundDisabled, CodeAutoCompoundDisabled},
	{ErrBelowMinimumCompound, CodeBelowMinimumCompound},
	{ErrIntervalNotElapsed, CodeIntervalNotElapsed},
	{ErrUnsupportedCrossAssetCompound, CodeCrossAssetUnsupported},
	{ErrMissingSignature, CodeMissingSignature},
	{ErrInvalidAccount, CodeInvalidAccount},
	{ErrInvalidInstruction, CodeInvalidInstruction},
	{ErrUnauthorized, CodeUnauthorized},
	{ErrAlreadyInitialized, CodeAlreadyInitialized},
	{ErrNotInitialized, CodeNotInitialized},
	{ErrInvalidEnum, CodeInvalidEnum},
	{ErrPositionCapacityExceeded, CodeCapacityExceeded},
	{ErrInsufficientFunds, CodeInsufficientFunds},
	{ErrPoolConfigFrozen, CodeConfigFrozen},
	{ErrInvalidStatusTransition, CodeStatusTransition},
	{ErrPoolNotActive, CodePoolNotActive},
	{ErrMaxPoolsReached, CodeMaxPoolsReached},
	{ErrInvalidArgument, CodeInvalidArgument},
}

// ErrorCode maps err to its stable code, or CodeUnknown.
func ErrorCode(err error) Code {
	if err == nil {
		return CodeUnknown
	}
	for _, entry := range errorCodes {
		if errors.Is(err, entry.err) {
			return entry.code
		}
	}
	return CodeUnknown
}
