package order

import (
	"bytes"
	"encoding/json"

	"github.com/Lumerin-protocol/actus-originator/internal/lib"
	"github.com/Lumerin-protocol/actus-originator/internal/terms"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// orderJSON is the durable form of an order. Empty signature slots are omitted.
type orderJSON struct {
	TermsHash             common.Hash       `json:"termsHash"`
	TemplateID            common.Hash       `json:"templateId"`
	CustomTerms           terms.CustomTerms `json:"customTerms"`
	Ownership             Ownership         `json:"ownership"`
	ExpirationDate        terms.Timestamp   `json:"expirationDate"`
	Engine                common.Address    `json:"engine"`
	Admin                 common.Address    `json:"admin"`
	Salt                  *hexutil.Big      `json:"salt"`
	CreatorSignature      hexutil.Bytes     `json:"creatorSignature,omitempty"`
	CounterpartySignature hexutil.Bytes     `json:"counterpartySignature,omitempty"`
}

func Serialize(o *Order) ([]byte, error) {
	return json.Marshal(orderJSON{
		TermsHash:             o.TermsHash,
		TemplateID:            o.TemplateID,
		CustomTerms:           o.CustomTerms,
		Ownership:             o.Ownership,
		ExpirationDate:        o.ExpirationDate,
		Engine:                o.Engine,
		Admin:                 o.Admin,
		Salt:                  (*hexutil.Big)(o.Salt),
		CreatorSignature:      o.CreatorSignature,
		CounterpartySignature: o.CounterpartySignature,
	})
}

func Deserialize(data []byte) (*Order, error) {
	var wire orderJSON
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&wire); err != nil {
		return nil, lib.WrapError(terms.ErrMalformedTerms, err)
	}

	o := &Order{
		TermsHash:      wire.TermsHash,
		TemplateID:     wire.TemplateID,
		CustomTerms:    wire.CustomTerms,
		Ownership:      wire.Ownership,
		ExpirationDate: wire.ExpirationDate,
		Engine:         wire.Engine,
		Admin:          wire.Admin,
		Salt:           wire.Salt.ToInt(),
	}
	if len(wire.CreatorSignature) > 0 {
		o.CreatorSignature = wire.CreatorSignature
	}
	if len(wire.CounterpartySignature) > 0 {
		o.CounterpartySignature = wire.CounterpartySignature
	}
	return o, nil
}
