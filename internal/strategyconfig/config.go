package strategyconfig

// Config는 기술적 분석 파라미터 전체 설정
type Config struct {
	Meta       Meta       `yaml:"meta" json:"meta"`
	Indicators Indicators `yaml:"indicators" json:"indicators"`
	Signals    Signals    `yaml:"signals" json:"signals"`
	Analysis   Analysis   `yaml:"analysis" json:"analysis"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
}

// Indicators 지표 윈도우/기간
type Indicators struct {
	SMAWindow       int `yaml:"sma_window" json:"sma_window"`               // 20
	EMASpan         int `yaml:"ema_span" json:"ema_span"`                   // 10
	WMAWindow       int `yaml:"wma_window" json:"wma_window"`               // 30
	MACDFast        int `yaml:"macd_fast" json:"macd_fast"`                 // 12
	MACDSlow        int `yaml:"macd_slow" json:"macd_slow"`                 // 26
	HMAWindow       int `yaml:"hma_window" json:"hma_window"`               // 50
	RSIPeriod       int `yaml:"rsi_period" json:"rsi_period"`               // 14
	StochKPeriod    int `yaml:"stoch_k_period" json:"stoch_k_period"`       // 14
	StochDPeriod    int `yaml:"stoch_d_period" json:"stoch_d_period"`       // 3
	CCIPeriod       int `yaml:"cci_period" json:"cci_period"`               // 20
	MomentumPeriod  int `yaml:"momentum_period" json:"momentum_period"`     // 14
	WilliamsPeriod  int `yaml:"williams_period" json:"williams_period"`     // 14
	ATRPeriod       int `yaml:"atr_period" json:"atr_period"`               // 14
	VolumeSMAWindow int `yaml:"volume_sma_window" json:"volume_sma_window"` // 20
}

// Signals 오실레이터 임계값
type Signals struct {
	RSIOverbought   float64 `yaml:"rsi_overbought" json:"rsi_overbought"`     // 70
	RSIOversold     float64 `yaml:"rsi_oversold" json:"rsi_oversold"`         // 30
	StochOverbought float64 `yaml:"stoch_overbought" json:"stoch_overbought"` // 80
	StochOversold   float64 `yaml:"stoch_oversold" json:"stoch_oversold"`     // 20
	CCIOverbought   float64 `yaml:"cci_overbought" json:"cci_overbought"`     // 100
	CCIOversold     float64 `yaml:"cci_oversold" json:"cci_oversold"`         // -100
}

// Analysis 분석 대상 규칙
type Analysis struct {
	MinBars    int      `yaml:"min_bars" json:"min_bars"`     // 10
	Timeframes []string `yaml:"timeframes" json:"timeframes"` // daily, weekly, monthly
}

// Default returns the built-in parameters
func Default() *Config {
	return &Config{
		Meta: Meta{
			StrategyID: "mse_technical",
			Version:    "1",
		},
		Indicators: Indicators{
			SMAWindow:       20,
			EMASpan:         10,
			WMAWindow:       30,
			MACDFast:        12,
			MACDSlow:        26,
			HMAWindow:       50,
			RSIPeriod:       14,
			StochKPeriod:    14,
			StochDPeriod:    3,
			CCIPeriod:       20,
			MomentumPeriod:  14,
			WilliamsPeriod:  14,
			ATRPeriod:       14,
			VolumeSMAWindow: 20,
		},
		Signals: Signals{
			RSIOverbought:   70,
			RSIOversold:     30,
			StochOverbought: 80,
			StochOversold:   20,
			CCIOverbought:   100,
			CCIOversold:     -100,
		},
		Analysis: Analysis{
			MinBars:    10,
			Timeframes: []string{"daily", "weekly", "monthly"},
		},
	}
}
