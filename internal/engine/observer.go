package engine

// Observer receives lifecycle notifications from the engine.
//
// RunStarted and RunFinished are called from Spawn and from runner goroutines;
// Delivered and Dropped are called from OnTick. Implementations must be safe
// for concurrent use and must return quickly: Delivered and Dropped run on the
// tick path.
type Observer interface {
	// RunStarted is called once a run is registered, before its runner starts.
	RunStarted(info RunInfo)
	// RunFinished is called after a run has been removed from the registry.
	// info.Status is StatusCancelled or StatusCompleted.
	RunFinished(info RunInfo)
	// Delivered is called after a command was forwarded to the sink.
	Delivered(d Dispatch)
	// Dropped is called for a command dequeued while the engine was not ready.
	Dropped(d Dispatch)
}

// NopObserver ignores every notification. Embed it to implement only some methods.
type NopObserver struct{}

func (NopObserver) RunStarted(RunInfo)  {}
func (NopObserver) RunFinished(RunInfo) {}
func (NopObserver) Delivered(Dispatch)  {}
func (NopObserver) Dropped(Dispatch)    {}

// Observers fans every notification out to each of obs, in order.
func Observers(obs ...Observer) Observer {
	return multiObserver(obs)
}

type multiObserver []Observer

func (m multiObserver) RunStarted(info RunInfo) {
	for _, o := range m {
		o.RunStarted(info)
	}
}

func (m multiObserver) RunFinished(info RunInfo) {
	for _, o := range m {
		o.RunFinished(info)
	}
}

func (m multiObserver) Delivered(d Dispatch) {
	for _, o := range m {
		o.Delivered(d)
	}
}

func (m multiObserver) Dropped(d Dispatch) {
	for _, o := range m {
		o.Dropped(d)
	}
}
