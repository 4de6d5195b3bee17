package registry

import (
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/identity-registry/forwarder"
	"github.com/ruteri/identity-registry/interfaces"
	"github.com/ruteri/identity-registry/ledger"
)

// settleFee executes the fee request through the trusted forwarder as a
// nested frame. Its failure fails the enclosing gas-less call, which rolls
// back the action already applied.
func (r *Registry) settleFee(env *ledger.Env, originator common.Address, feeRequest interfaces.ForwardRequest, feeSignature []byte) error {
	if feeRequest.From != originator {
		return fmt.Errorf("%w: %w: fee request from %s, action from %s", interfaces.ErrFeeSettlementFailed, interfaces.ErrIdentityMismatch, feeRequest.From.Hex(), originator.Hex())
	}
	if r.config.FeeToken != (common.Address{}) && feeRequest.To != r.config.FeeToken {
		return fmt.Errorf("%w: fee request targets %s, fee token is %s", interfaces.ErrFeeSettlementFailed, feeRequest.To.Hex(), r.config.FeeToken.Hex())
	}

	data, err := forwarder.ABI.Pack("execute", feeRequest, feeSignature)
	if err != nil {
		return fmt.Errorf("%w: %w", interfaces.ErrFeeSettlementFailed, err)
	}

	if _, err := env.Call(r.config.TrustedForwarder, data, nil, env.GasLeft()); err != nil {
		return fmt.Errorf("%w: %w", interfaces.ErrFeeSettlementFailed, err)
	}

	r.log.Debug("Relayer fee settled",
		slog.String("from", originator.Hex()),
		slog.String("token", feeRequest.To.Hex()),
		slog.String("nonce", feeRequest.Nonce.String()))
	return nil
}
