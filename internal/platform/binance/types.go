package binance

import (
	"strconv"

	"github.com/minutebar/candlebot/internal/domain"
)

// APIOrderResponse is the wire shape of a successful order submission.
type APIOrderResponse struct {
	Symbol        string    `json:"symbol"`
	OrderID       int64     `json:"orderId"`
	ClientOrderID string    `json:"clientOrderId"`
	Status        string    `json:"status"`
	ExecutedQty   string    `json:"executedQty"`
	Fills         []APIFill `json:"fills"`
}

// APIFill is one execution report inside an order response. The exchange
// serializes all numeric fields as strings.
type APIFill struct {
	Price           string `json:"price"`
	Qty             string `json:"qty"`
	Commission      string `json:"commission"`
	CommissionAsset string `json:"commissionAsset"`
}

// APIError is the error envelope returned for rejected requests.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
}

// apiBalance is one asset entry in the account response.
type apiBalance struct {
	Asset  string `json:"asset"`
	Free   string `json:"free"`
	Locked string `json:"locked"`
}

// apiAccount is the wire shape of the account endpoint response.
type apiAccount struct {
	Balances []apiBalance `json:"balances"`
}

// apiAvgPrice is the wire shape of the average price endpoint response.
type apiAvgPrice struct {
	Mins  int    `json:"mins"`
	Price string `json:"price"`
}

// ToDomainAck converts the API response to a domain OrderAck. Unparseable
// fill fields are dropped rather than failing the whole ack: the submission
// already succeeded and fills are audit detail only.
func (r APIOrderResponse) ToDomainAck() domain.OrderAck {
	ack := domain.OrderAck{
		OrderID: strconv.FormatInt(r.OrderID, 10),
	}
	for _, f := range r.Fills {
		price, err1 := strconv.ParseFloat(f.Price, 64)
		qty, err2 := strconv.ParseFloat(f.Qty, 64)
		commission, err3 := strconv.ParseFloat(f.Commission, 64)
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		ack.Fills = append(ack.Fills, domain.Fill{
			Price:      price,
			Quantity:   qty,
			Commission: commission,
		})
	}
	return ack
}
