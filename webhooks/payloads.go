package webhooks

import (
	"bytes"
	"encoding/json"
)

// ID is an identifier read from a payload. Numbers keep their literal text and
// strings are unquoted, so numeric ids and gid strings both survive as sent.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
	case len(data) > 0 && data[0] == '"':
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*id = ID(text)
	default:
		*id = ID(data)
	}
	return nil
}

func (id ID) String() string {
	return string(id)
}

type CustomerRef struct {
	ID    ID     `json:"id"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type DataRequestRef struct {
	ID ID `json:"id"`
}

type CustomersDataRequestPayload struct {
	ShopID          ID             `json:"shop_id"`
	ShopDomain      string         `json:"shop_domain"`
	OrdersRequested []ID           `json:"orders_requested"`
	Customer        CustomerRef    `json:"customer"`
	DataRequest     DataRequestRef `json:"data_request"`
}

type CustomersRedactPayload struct {
	ShopID         ID          `json:"shop_id"`
	ShopDomain     string      `json:"shop_domain"`
	Customer       CustomerRef `json:"customer"`
	OrdersToRedact []ID        `json:"orders_to_redact"`
}

type ShopRedactPayload struct {
	ShopID     ID     `json:"shop_id"`
	ShopDomain string `json:"shop_domain"`
}

// OrderUpdatedPayload keeps only the order id. A payload without id decodes
// to an empty id, which is handed on as is.
type OrderUpdatedPayload struct {
	ID ID `json:"id"`
}
