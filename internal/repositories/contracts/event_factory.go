package contracts

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var ErrUnknownEvent = errors.New("unknown event")

// EventMapper decodes a log into one of the event structs below
type EventMapper func(types.Log) (interface{}, error)

// IssuedAssetEvent is emitted by the asset issuer for every issued asset
type IssuedAssetEvent struct {
	AssetId      [32]byte
	Creator      common.Address
	Counterparty common.Address
	Raw          types.Log
}

func (e *IssuedAssetEvent) setRaw(log types.Log) {
	e.Raw = log
}

func (e *IssuedAssetEvent) AssetID() common.Hash {
	return e.AssetId
}

type rawSetter interface {
	setRaw(types.Log)
}

func assetIssuerEventFactory(name string) interface{} {
	switch name {
	case "IssuedAsset":
		return new(IssuedAssetEvent)
	default:
		return nil
	}
}

// CreateEventMapper maps logs of a contract using the factory, logs of events the factory
// doesn't know are reported with ErrUnknownEvent
func CreateEventMapper(eventFactory func(name string) interface{}, contractABI abi.ABI) EventMapper {
	return func(log types.Log) (interface{}, error) {
		if len(log.Topics) == 0 {
			return nil, fmt.Errorf("%w: anonymous log", ErrUnknownEvent)
		}
		event, err := contractABI.EventByID(log.Topics[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, err)
		}

		out := eventFactory(event.Name)
		if out == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, event.Name)
		}

		if len(log.Data) > 0 {
			if err := contractABI.UnpackIntoInterface(out, event.Name, log.Data); err != nil {
				return nil, err
			}
		}

		var indexed abi.Arguments
		for _, arg := range event.Inputs {
			if arg.Indexed {
				indexed = append(indexed, arg)
			}
		}
		if err := abi.ParseTopics(out, indexed, log.Topics[1:]); err != nil {
			return nil, err
		}

		if s, ok := out.(rawSetter); ok {
			s.setRaw(log)
		}
		return out, nil
	}
}
