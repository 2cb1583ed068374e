package biz

const (
	Rows = 5 // 行数
	Cols = 6 // 列数
)

// Symbol codes as sent by the backend.
const (
	SymbolEmpty   Symbol = -1 // 消除后的空位
	SymbolScatter Symbol = 0  // 夺宝

	_minPaying Symbol = 1
	_maxPaying Symbol = 9

	_hazardMin Symbol = 20 // 炸弹 20..32, 倍数见 _hazardTiers
	_hazardMax Symbol = _hazardMin + Symbol(len(_hazardTiers)) - 1
)

// _hazardTiers maps hazard code offset to its multiplier.
var _hazardTiers = [...]int{2, 3, 4, 5, 6, 8, 10, 12, 15, 20, 25, 50, 100}

const (
	_defaultMinCluster   = 8
	_defaultScatterBase  = 4
	_defaultScatterBonus = 3
	_defaultRetrigger    = 5
)

var _defaultFreeSpinTable = map[int]int{4: 10, 5: 10, 6: 10}

// _defaultOverlayTiers are win/bet ratios, ascending: big, mega, epic.
var _defaultOverlayTiers = []float64{10, 25, 50}

const (
	HazardAdditive       = "additive"
	HazardMultiplicative = "multiplicative"
)

const (
	stateBase  = "base"
	stateBonus = "bonus"

	eventTrigger = "trigger"
	eventFinish  = "finish"
)
