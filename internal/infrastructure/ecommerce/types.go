package ecommerce

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Wire types
// ---------------------------------------------------------------------------

// recordEnvelope is the minimal shape of every single-record response
type recordEnvelope struct {
	ID json.RawMessage `json:"id"`
}

// listResponse is a cursor-paginated collection response
type listResponse struct {
	Data       []json.RawMessage `json:"data"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// errorResponse covers the two error body shapes the platform returns
type errorResponse struct {
	Message string `json:"message,omitempty"`
	Error   *struct {
		Code    string `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error,omitempty"`
}

func (e errorResponse) text() string {
	if e.Error != nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return e.Message
}

type addressDTO struct {
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

type customerDTO struct {
	ID          json.RawMessage `json:"id,omitempty"`
	ExternalRef string          `json:"external_ref,omitempty"`
	Email       string          `json:"email"`
	FirstName   string          `json:"first_name,omitempty"`
	LastName    string          `json:"last_name,omitempty"`
	Phone       string          `json:"phone,omitempty"`
	Company     string          `json:"company,omitempty"`
	Billing     addressDTO      `json:"billing"`
	Shipping    addressDTO      `json:"shipping"`
}

type orderLineDTO struct {
	SKU       string          `json:"sku,omitempty"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
}

type orderDTO struct {
	ID            json.RawMessage `json:"id,omitempty"`
	ExternalRef   string          `json:"external_ref,omitempty"`
	Number        string          `json:"number"`
	Status        string          `json:"status"`
	Currency      string          `json:"currency"`
	CustomerEmail string          `json:"customer_email,omitempty"`
	Lines         []orderLineDTO  `json:"line_items"`
	TaxTotal      decimal.Decimal `json:"tax_total"`
	ShippingTotal decimal.Decimal `json:"shipping_total"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	Total         decimal.Decimal `json:"total"`
	PlacedAt      *time.Time      `json:"placed_at,omitempty"`
}

// ---------------------------------------------------------------------------
// Conversion
// ---------------------------------------------------------------------------

func toAddressDTO(a valueobject.Address) addressDTO {
	return addressDTO(a)
}

func fromAddressDTO(a addressDTO) valueobject.Address {
	return valueobject.Address(a)
}

// encodePayload renders a payload as the request body for et
func encodePayload(et integration.EntityType, payload integration.Payload) ([]byte, error) {
	if payload == nil || payload.EntityType() != et {
		return nil, fmt.Errorf("ecommerce: payload does not describe a %s", et)
	}

	switch p := payload.(type) {
	case integration.CustomerPayload:
		return json.Marshal(customerDTO{
			ExternalRef: p.ExternalRef,
			Email:       p.Email,
			FirstName:   p.FirstName,
			LastName:    p.LastName,
			Phone:       p.Phone,
			Company:     p.Company,
			Billing:     toAddressDTO(p.Billing),
			Shipping:    toAddressDTO(p.Shipping),
		})
	case integration.OrderPayload:
		lines := make([]orderLineDTO, 0, len(p.Lines))
		for _, l := range p.Lines {
			lines = append(lines, orderLineDTO(l))
		}
		return json.Marshal(orderDTO{
			ExternalRef:   p.ExternalRef,
			Number:        p.OrderNumber,
			Status:        p.Status,
			Currency:      p.Currency,
			CustomerEmail: p.CustomerEmail,
			Lines:         lines,
			TaxTotal:      p.TaxTotal,
			ShippingTotal: p.ShippingTotal,
			DiscountTotal: p.DiscountTotal,
			Total:         p.Total,
			PlacedAt:      p.PlacedAt,
		})
	default:
		return nil, fmt.Errorf("ecommerce: unsupported payload type %T", payload)
	}
}

// decodeItem parses one listed record of type et
func decodeItem(et integration.EntityType, raw json.RawMessage) (integration.RemoteItem, error) {
	switch et {
	case integration.EntityTypeCustomer:
		var dto customerDTO
		if err := json.Unmarshal(raw, &dto); err != nil {
			return integration.RemoteItem{}, err
		}
		id, err := parseID(dto.ID)
		if err != nil {
			return integration.RemoteItem{}, err
		}
		return integration.RemoteItem{
			RemoteID: id,
			Raw:      raw,
			Payload: integration.CustomerPayload{
				ExternalRef: dto.ExternalRef,
				Email:       dto.Email,
				FirstName:   dto.FirstName,
				LastName:    dto.LastName,
				Phone:       dto.Phone,
				Company:     dto.Company,
				Billing:     fromAddressDTO(dto.Billing),
				Shipping:    fromAddressDTO(dto.Shipping),
			},
		}, nil
	case integration.EntityTypeOrder:
		var dto orderDTO
		if err := json.Unmarshal(raw, &dto); err != nil {
			return integration.RemoteItem{}, err
		}
		id, err := parseID(dto.ID)
		if err != nil {
			return integration.RemoteItem{}, err
		}
		lines := make([]integration.OrderLinePayload, 0, len(dto.Lines))
		for _, l := range dto.Lines {
			lines = append(lines, integration.OrderLinePayload(l))
		}
		return integration.RemoteItem{
			RemoteID: id,
			Raw:      raw,
			Payload: integration.OrderPayload{
				ExternalRef:   dto.ExternalRef,
				OrderNumber:   dto.Number,
				Status:        dto.Status,
				Currency:      dto.Currency,
				CustomerEmail: dto.CustomerEmail,
				Lines:         lines,
				TaxTotal:      dto.TaxTotal,
				ShippingTotal: dto.ShippingTotal,
				DiscountTotal: dto.DiscountTotal,
				Total:         dto.Total,
				PlacedAt:      dto.PlacedAt,
			},
		}, nil
	default:
		return integration.RemoteItem{}, integration.ErrInvalidEntityType
	}
}

// parseID accepts numeric and string identifiers
func parseID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", fmt.Errorf("missing id")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return "", fmt.Errorf("empty id")
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("id is neither string nor number: %s", raw)
	}
	return n.String(), nil
}
