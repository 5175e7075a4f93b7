package common

// Status 結果狀態
type Status string

const (
	StatusSuccess       Status = "success"        // 處理成功
	StatusParsingFailed Status = "parsing_failed" // 解析失敗
	StatusInvalidInput  Status = "invalid_input"  // 輸入無效
	StatusInvalidRecipe Status = "invalid_recipe" // 食譜無效（缺標題、缺食材、全部解析失敗）
	StatusDatabaseError Status = "database_error" // 資料庫寫入失敗（局部，不中斷批次）
	StatusUnknownError  Status = "unknown_error"  // 未預期的錯誤
)

// Result 統一的處理結果值物件
// 正規化入口對每筆輸入食譜回傳一個 Result，順序與輸入一致
type Result struct {
	Status  Status      `json:"status"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Success 建立成功結果
func Success(data interface{}) Result {
	return Result{Status: StatusSuccess, Data: data}
}

// Failed 建立失敗結果，未指定狀態時預設為解析失敗
func Failed(message string, status Status) Result {
	if status == "" {
		status = StatusParsingFailed
	}
	return Result{Status: status, Message: message}
}

// Invalid 建立輸入無效結果
func Invalid(message string) Result {
	return Result{Status: StatusInvalidInput, Message: message}
}

// IsSuccess 是否成功
func (r Result) IsSuccess() bool {
	return r.Status == StatusSuccess
}

// IsFailed 是否失敗
func (r Result) IsFailed() bool {
	return !r.IsSuccess()
}
