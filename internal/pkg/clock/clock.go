package clock

import "time"

// Clock は現在時刻の取得を抽象化する
// accept の期限チェックとスイーパーの expire が同じ時刻源を共有するための仕組み
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystem は time.Now ベースのクロックを返す
func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

type fixedClock struct {
	now time.Time
}

// NewFixed は常に同じ時刻を返すクロックを返す（テスト用）
func NewFixed(t time.Time) Clock {
	return fixedClock{now: t.UTC()}
}

func (f fixedClock) Now() time.Time {
	return f.now
}
