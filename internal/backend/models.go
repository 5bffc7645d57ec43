package backend

import "merchantdash/internal/advice"

type Product struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Stock int64  `json:"stock"`
}

type ForecastDay struct {
	Date           string          `json:"date"`
	Weather        string          `json:"weather"`
	PredictedSales float64         `json:"sales"`
	Advice         string          `json:"advice"`
	Category       advice.Category `json:"category,omitempty"`
}

type ProductForecast struct {
	ProductID   int64         `json:"product_id"`
	ProductName string        `json:"product_name"`
	Location    string        `json:"location"`
	Forecast    []ForecastDay `json:"weekly_forecast"`
}

type SalesRecord struct {
	Date            string `json:"date"`
	ProductID       int64  `json:"product_id"`
	QuantitySold    int64  `json:"quantity_sold"`
	RecordedWeather string `json:"recorded_weather"`
}

type Summary struct {
	Revenue       float64 `json:"revenue"`
	TopProduct    string  `json:"top_product"`
	GrowthPercent float64 `json:"growth"`
}

type SaleRequest struct {
	ProductID int64  `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	Date      string `json:"date"`
}

type RestockRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// RetrainResponse covers both outcomes of POST /retrain. A "failed" status
// arrives with HTTP 200 and a message instead of an accuracy block.
type RetrainResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Accuracy  *Accuracy `json:"accuracy"`
	TotalData int       `json:"total_data"`
}

type Accuracy struct {
	R2Score float64 `json:"r2_score"`
}

type statusResponse struct {
	Status string `json:"status"`
}
