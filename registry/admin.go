package registry

import (
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/identity-registry/interfaces"
	"github.com/ruteri/identity-registry/ledger"
)

func (r *Registry) onlyOwner(sender common.Address) error {
	if sender != r.config.Owner {
		return fmt.Errorf("%w: %s is not the registry owner", interfaces.ErrUnauthorized, sender.Hex())
	}
	return nil
}

func (r *Registry) setConvenienceGateway(env *ledger.Env, sender common.Address, gateway string) error {
	if err := r.onlyOwner(sender); err != nil {
		return err
	}
	if err := ledger.Assign(env, &r.config.ConvenienceGateway, gateway); err != nil {
		return err
	}
	r.log.Info("Convenience gateway updated", slog.String("gateway", gateway))
	return nil
}

func (r *Registry) setPrimarySigner(env *ledger.Env, sender common.Address, signer common.Address) error {
	if err := r.onlyOwner(sender); err != nil {
		return err
	}
	if err := ledger.Assign(env, &r.config.PrimarySigner, signer); err != nil {
		return err
	}
	r.log.Info("Primary signer updated", slog.String("signer", signer.Hex()))
	return nil
}

func (r *Registry) setTrustedForwarder(env *ledger.Env, sender common.Address, forwarder common.Address) error {
	if err := r.onlyOwner(sender); err != nil {
		return err
	}
	if err := ledger.Assign(env, &r.config.TrustedForwarder, forwarder); err != nil {
		return err
	}
	r.log.Info("Trusted forwarder updated", slog.String("forwarder", forwarder.Hex()))
	return nil
}

func (r *Registry) setFeeToken(env *ledger.Env, sender common.Address, token common.Address) error {
	if err := r.onlyOwner(sender); err != nil {
		return err
	}
	if err := ledger.Assign(env, &r.config.FeeToken, token); err != nil {
		return err
	}
	r.log.Info("Fee token updated", slog.String("token", token.Hex()))
	return nil
}

func (r *Registry) transferOwnership(env *ledger.Env, sender common.Address, newOwner common.Address) error {
	if err := r.onlyOwner(sender); err != nil {
		return err
	}
	if newOwner == (common.Address{}) {
		return fmt.Errorf("%w: new owner is the zero address", interfaces.ErrUnauthorized)
	}
	if err := ledger.Assign(env, &r.config.Owner, newOwner); err != nil {
		return err
	}
	r.log.Info("Ownership transferred", slog.String("previousOwner", sender.Hex()), slog.String("newOwner", newOwner.Hex()))
	return nil
}
