package dto

import "time"

// AnalyticsReport is the document served to dashboards. Amounts are rounded to
// cents and percentages to two decimals; clients only format it.
type AnalyticsReport struct {
	InvestorID         int64               `json:"investorId"`
	Timeframe          string              `json:"timeframe"`
	GeneratedAt        time.Time           `json:"generatedAt"`
	Empty              bool                `json:"empty"`
	HealthScore        int                 `json:"healthScore"`
	Portfolio          PortfolioSummary    `json:"portfolio"`
	Investments        []InvestmentItem    `json:"investments"`
	MonthlyReturns     []MonthlyReturn     `json:"monthlyReturns"`
	SectorPerformance  []SectorPerformance `json:"sectorPerformance"`
	RiskAnalysis       []RiskAnalysisItem  `json:"riskAnalysis"`
	PerformanceMetrics PerformanceMetrics  `json:"performanceMetrics"`
	Summary            Summary             `json:"summary"`
}

// PortfolioSummary holds whole-portfolio totals
type PortfolioSummary struct {
	TotalValue         float64 `json:"totalValue"`
	TotalInvested      float64 `json:"totalInvested"`
	TotalReturns       float64 `json:"totalReturns"`
	PortfolioReturn    float64 `json:"portfolioReturn"`
	DistributedProfits float64 `json:"distributedProfits"`
	PendingProfits     float64 `json:"pendingProfits"`
	UnrealizedGains    float64 `json:"unrealizedGains"`
	ActiveInvestments  int     `json:"activeInvestments"`
	TotalInvestments   int     `json:"totalInvestments"`
	InvestmentRecords  int     `json:"investmentRecords"`
}

// InvestmentItem is one position row
type InvestmentItem struct {
	ProjectID          int64     `json:"projectId"`
	ProjectTitle       string    `json:"projectTitle"`
	Sector             string    `json:"sector"`
	RiskLevel          string    `json:"riskLevel"`
	InvestedAmount     float64   `json:"investedAmount"`
	CurrentFunding     float64   `json:"currentFunding"`
	CurrentValue       float64   `json:"currentValue"`
	OwnershipShare     float64   `json:"ownershipShare"`
	TotalReturn        float64   `json:"totalReturn"`
	ReturnPercentage   float64   `json:"returnPercentage"`
	DistributedProfits float64   `json:"distributedProfits"`
	PendingProfits     float64   `json:"pendingProfits"`
	UnrealizedGains    float64   `json:"unrealizedGains"`
	Progress           float64   `json:"progress"`
	Status             string    `json:"status"`
	LifecycleStage     string    `json:"lifecycleStage"`
	InvestmentDate     time.Time `json:"investmentDate"`
	LastInvestmentDate time.Time `json:"lastInvestmentDate"`
	InvestmentCount    int       `json:"investmentCount"`
}

// MonthlyReturn is one calendar month of the series
type MonthlyReturn struct {
	Month               string  `json:"month"`
	Returns             float64 `json:"returns"`
	Cumulative          float64 `json:"cumulative"`
	Benchmark           float64 `json:"benchmark"`
	BenchmarkCumulative float64 `json:"benchmarkCumulative"`
	Realized            float64 `json:"realized"`
	CumulativeRealized  float64 `json:"cumulativeRealized"`
	PortfolioValue      float64 `json:"portfolioValue"`
	InvestedValue       float64 `json:"investedValue"`
}

// SectorPerformance is one sector bucket
type SectorPerformance struct {
	Sector     string  `json:"sector"`
	Invested   float64 `json:"invested"`
	Returns    float64 `json:"returns"`
	ReturnRate float64 `json:"returnRate"`
}

// RiskAnalysisItem is one risk-level bucket
type RiskAnalysisItem struct {
	Risk       string  `json:"risk"`
	Invested   float64 `json:"invested"`
	Allocation float64 `json:"allocation"`
	Returns    float64 `json:"returns"`
}

// PerformanceMetrics are the window statistics
type PerformanceMetrics struct {
	AverageReturn   float64 `json:"averageReturn"`
	BestMonth       string  `json:"bestMonth"`
	BestMonthValue  float64 `json:"bestMonthValue"`
	WorstMonth      string  `json:"worstMonth"`
	WorstMonthValue float64 `json:"worstMonthValue"`
	Volatility      float64 `json:"volatility"`
	SharpeRatio     float64 `json:"sharpeRatio"`
	MaxDrawdown     float64 `json:"maxDrawdown"`
	WinRate         float64 `json:"winRate"`
}

// Summary is the compact header block
type Summary struct {
	TotalInvestments  int     `json:"totalInvestments"`
	TotalInvested     float64 `json:"totalInvested"`
	TotalReturns      float64 `json:"totalReturns"`
	ActiveInvestments int     `json:"activeInvestments"`
	HealthScore       int     `json:"healthScore"`
}

// ErrorResponse is the body returned for failed requests
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	Retryable bool   `json:"retryable"`
}
