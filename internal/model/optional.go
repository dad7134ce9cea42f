package model

// Optional は「未設定」と「設定済みの値」を区別する値型。
// ゼロ値は未設定を表す。NULL許容カラムの値をそのまま文字列整形に流さないために使う。
type Optional[T any] struct {
	value T
	set   bool
}

// Some は値が設定済みのOptionalを返す。
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// None は未設定のOptionalを返す。
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// IsSet は値が設定済みかを返す。
func (o Optional[T]) IsSet() bool {
	return o.set
}

// Get は値と設定済みかどうかを返す。
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

// OrElse は値が設定済みならその値を、未設定ならdefを返す。
func (o Optional[T]) OrElse(def T) T {
	if o.set {
		return o.value
	}
	return def
}
