package contracts

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/Lumerin-protocol/actus-originator/internal/interfaces"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const RECONNECT_TIMEOUT = 2 * time.Second

type LogWatcherPolling struct {
	// config
	maxReconnects int
	pollInterval  time.Duration

	// deps
	client EthereumClient
	log    interfaces.ILogger
}

func NewLogWatcherPolling(client EthereumClient, pollInterval time.Duration, maxReconnects int, log interfaces.ILogger) *LogWatcherPolling {
	if maxReconnects < 1 {
		maxReconnects = 1
	}
	return &LogWatcherPolling{
		client:        client,
		pollInterval:  pollInterval,
		maxReconnects: maxReconnects,
		log:           log,
	}
}

// Watch passes mapped events of the contract to the handler, starting at fromBlock or the
// latest block if nil. Returns when the context is done or the handler fails.
func (w *LogWatcherPolling) Watch(ctx context.Context, contractAddr common.Address, mapper EventMapper, fromBlock *big.Int, handler func(event interface{}) error) error {
	if fromBlock == nil {
		header, err := w.client.HeaderByNumber(ctx, nil)
		if err != nil {
			return err
		}
		fromBlock = header.Number
	}
	nextBlock := new(big.Int).Set(fromBlock)

	for {
		header, err := w.client.HeaderByNumber(ctx, nil)
		if err != nil {
			w.log.Warnf("can't get latest block: %s", err)
		}

		if err == nil && header.Number.Cmp(nextBlock) >= 0 {
			query := ethereum.FilterQuery{
				Addresses: []common.Address{contractAddr},
				FromBlock: nextBlock,
				ToBlock:   header.Number,
			}
			logs, err := w.filterLogsRetry(ctx, query)
			if err != nil {
				return err
			}

			for _, log := range logs {
				if log.Removed {
					continue
				}
				event, err := mapper(log)
				if errors.Is(err, ErrUnknownEvent) {
					w.log.Debugf("skipping log of tx %s: %s", log.TxHash.Hex(), err)
					continue
				}
				if err != nil {
					return err // mapper error, retry won't help
				}
				if err := handler(event); err != nil {
					return err
				}
			}

			nextBlock = new(big.Int).Add(header.Number, big.NewInt(1))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.pollInterval):
		}
	}
}

func (w *LogWatcherPolling) filterLogsRetry(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	var lastErr error

	for attempts := 0; attempts < w.maxReconnects; attempts++ {
		logs, err := w.client.FilterLogs(ctx, query)
		if err != nil {
			lastErr = err
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(RECONNECT_TIMEOUT):
			}
			continue
		}
		if attempts > 0 {
			w.log.Warnf("log polling reconnected due to error: %s", lastErr)
		}

		return logs, nil
	}

	return nil, lastErr
}
