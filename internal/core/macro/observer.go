package macro

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	OnStatus func(message string)
	OnClick  func(x, y int)
	OnStart  func()
	OnEnd    func()
}

func (o ObserverFuncs) Status(message string) {
	if o.OnStatus != nil {
		o.OnStatus(message)
	}
}

func (o ObserverFuncs) ClickIndicator(x, y int) {
	if o.OnClick != nil {
		o.OnClick(x, y)
	}
}

func (o ObserverFuncs) ExecutionStarted() {
	if o.OnStart != nil {
		o.OnStart()
	}
}

func (o ObserverFuncs) ExecutionEnded() {
	if o.OnEnd != nil {
		o.OnEnd()
	}
}

// Observers fans every notification out in order.
type Observers []Observer

func (m Observers) Status(message string) {
	for _, o := range m {
		o.Status(message)
	}
}

func (m Observers) ClickIndicator(x, y int) {
	for _, o := range m {
		o.ClickIndicator(x, y)
	}
}

func (m Observers) ExecutionStarted() {
	for _, o := range m {
		o.ExecutionStarted()
	}
}

func (m Observers) ExecutionEnded() {
	for _, o := range m {
		o.ExecutionEnded()
	}
}
