package taivm

type Frame struct {
	Fun      *linkedFunc
	ReturnIP int
	BP       int
}
