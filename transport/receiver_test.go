package transport

import "testing"

func TestReceiverDispatchesDataAndProgressUntilTerminators(t *testing.T) {
	hub := NewHub(3, false) // ranks 1, 2
	rc := NewReceiver(hub, []int{1, 2})

	var gotData []string
	var gotProgress []int

	done := make(chan error, 1)
	go func() {
		done <- rc.Run(TagData, func(rank int, payload []byte) {
			gotData = append(gotData, string(payload))
		}, nil, func(rank int) {
			gotProgress = append(gotProgress, rank)
		})
	}()

	hub.inbox <- Msg{Rank: 1, Tag: TagData, Payload: []byte("r1")}
	hub.inbox <- Msg{Rank: 1, Tag: TagProgress}
	hub.inbox <- Msg{Rank: 2, Tag: TagData, Payload: []byte("r2")}
	hub.inbox <- Msg{Rank: 1, Tag: TagData} // terminator
	hub.inbox <- Msg{Rank: 2, Tag: TagData} // terminator

	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(gotData) != 2 {
		t.Fatalf("got %d data frames, want 2: %v", len(gotData), gotData)
	}
	if len(gotProgress) != 1 || gotProgress[0] != 1 {
		t.Fatalf("gotProgress = %v, want [1]", gotProgress)
	}
}

func TestReceiverShortCircuitStillDrains(t *testing.T) {
	hub := NewHub(2, false) // rank 1 only
	rc := NewReceiver(hub, []int{1})

	seen := 0
	done := make(chan error, 1)
	go func() {
		done <- rc.Run(TagData, func(rank int, payload []byte) {
			seen++
		}, func() bool { return seen >= 1 }, nil)
	}()

	hub.inbox <- Msg{Rank: 1, Tag: TagData, Payload: []byte("r1")}
	hub.inbox <- Msg{Rank: 1, Tag: TagData, Payload: []byte("r2")} // drained, not processed
	hub.inbox <- Msg{Rank: 1, Tag: TagData}                        // terminator

	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if seen != 1 {
		t.Fatalf("seen = %d, want 1 (short-circuit after first record)", seen)
	}
}

func TestReceiverResetReusesForNextPhase(t *testing.T) {
	hub := NewHub(2, false)
	rc := NewReceiver(hub, []int{1})

	done1 := make(chan error, 1)
	go func() { done1 <- rc.Run(TagTput1, func(int, []byte) {}, nil, nil) }()
	hub.inbox <- Msg{Rank: 1, Tag: TagTput1}
	if err := <-done1; err != nil {
		t.Fatal(err)
	}

	rc.Reset([]int{1})
	var phase2Seen bool
	done2 := make(chan error, 1)
	go func() {
		done2 <- rc.Run(TagTput2, func(rank int, payload []byte) {
			phase2Seen = true
		}, nil, nil)
	}()
	hub.inbox <- Msg{Rank: 1, Tag: TagTput2, Payload: []byte("x")}
	hub.inbox <- Msg{Rank: 1, Tag: TagTput2}
	if err := <-done2; err != nil {
		t.Fatal(err)
	}
	if !phase2Seen {
		t.Fatal("expected phase 2 data to be seen after Reset")
	}
}
