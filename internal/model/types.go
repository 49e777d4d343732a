package model

import "time"

// Wire types for the dispatch API.

type TimingIn struct {
    StopTime        float64 `json:"stopTime"`
    LoadTime        float64 `json:"loadTime"`
    DriveTime       float64 `json:"driveTime"`
    StartupTime     float64 `json:"startupTime"`
    CapacityPenalty float64 `json:"capacityPenalty"`
}

type CallIn struct {
    Release    float64 `json:"release"`
    Start      int     `json:"start"`
    Dest       int     `json:"dest"`
    WaitCost   float64 `json:"waitCost"`
    TravelCost float64 `json:"travelCost"`
}

// RequestIn is either a list of calls or, when Calls is empty, a shorthand
// of Passengers identical calls from Start to Dest.
type RequestIn struct {
    ID         int      `json:"id"`
    Calls      []CallIn `json:"calls,omitempty"`
    Start      int      `json:"start,omitempty"`
    Dest       int      `json:"dest,omitempty"`
    Release    float64  `json:"release,omitempty"`
    Passengers int      `json:"passengers,omitempty"`
    WaitCost   *float64 `json:"waitCost,omitempty"`
    TravelCost *float64 `json:"travelCost,omitempty"`
}

type ElevatorIn struct {
    ID         int         `json:"id"`
    Capacity   int         `json:"capacity"`
    Floor      int         `json:"floor"`
    Direction  string      `json:"direction,omitempty"` // up, down, idle
    Time       float64     `json:"time,omitempty"`
    Loaded     []CallIn    `json:"loaded,omitempty"`
    Assigned   []RequestIn `json:"assigned,omitempty"`
    Directions []string    `json:"directions,omitempty"`
}

// DispatchRequest is the body of POST /v1/dispatch. The tenant comes from
// the X-Tenant-Id header only.
type DispatchRequest struct {
    Floors    int            `json:"floors"`
    Timing    TimingIn       `json:"timing"`
    Elevators []ElevatorIn   `json:"elevators"`
    Requests  []RequestIn    `json:"requests"`
    // Config overrides solver settings for this run only (snake_case keys,
    // durations as strings such as "2s").
    Config    map[string]any `json:"config,omitempty"`
}

type Assignment struct {
    RequestID  int `json:"requestId"`
    ElevatorID int `json:"elevatorId"`
}

type StopOut struct {
    Floor    int     `json:"floor"`
    Arrival  float64 `json:"arrival"`
    Depart   string  `json:"depart"`
    Picked   []int   `json:"picked,omitempty"`
    Dropped  int     `json:"dropped,omitempty"`
}

type ElevatorPlan struct {
    ElevatorID int       `json:"elevatorId"`
    Cost       float64   `json:"cost"`
    Penalty    float64   `json:"penalty,omitempty"`
    Requests   []int     `json:"requests,omitempty"`
    Stops      []StopOut `json:"stops"`
}

type RunStats struct {
    Nodes           int     `json:"nodes"`
    LPSolves        int     `json:"lpSolves"`
    Columns         int     `json:"columns"`
    PricingCalls    int     `json:"pricingCalls"`
    Iterations      int     `json:"iterations"`
    RootBound       float64 `json:"rootBound"`
    LagrangianBound float64 `json:"lagrangianBound,omitempty"`
    ElapsedMs       int64   `json:"elapsedMs"`
}

type DispatchResponse struct {
    RunID       string         `json:"runId"`
    Status      string         `json:"status"`
    Objective   float64        `json:"objective"`
    Assignments []Assignment   `json:"assignments"`
    Elevators   []ElevatorPlan `json:"elevators"`
    Stats       RunStats       `json:"stats"`
}

// Run statuses outside the solver's own.
const (
    RunRunning = "running"
    RunFailed  = "failed"
)

type RunSummary struct {
    ID        string    `json:"id"`
    Status    string    `json:"status"`
    Objective float64   `json:"objective"`
    Elevators int       `json:"elevators"`
    Requests  int       `json:"requests"`
    ElapsedMs int64     `json:"elapsedMs"`
    Error     string    `json:"error,omitempty"`
    CreatedAt time.Time `json:"createdAt"`
}

// Run is a stored dispatch: the input as posted and, once finished, the
// response.
type Run struct {
    RunSummary
    TenantID string            `json:"tenantId"`
    Request  DispatchRequest   `json:"request"`
    Response *DispatchResponse `json:"response,omitempty"`
}
