package inventory

import (
	"context"
	"testing"
	"time"
)

func TestWatchReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.fwlayout", `<LayoutInventory><layout class="C" type="t" name="N" /></LayoutInventory>`)
	inv, err := Open(context.Background(), fixtureOptions(WithDirs(dir))...)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- inv.Watch(ctx, 20*time.Millisecond) }()
	defer func() {
		cancel()
		<-done
	}()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		writeFile(t, dir, "b.fwlayout", `<LayoutInventory><layout class="C" type="t" name="M" /></LayoutInventory>`)
		time.Sleep(100 * time.Millisecond)
		if _, ok := inv.Get("layout", "C", "t", "M"); ok {
			return
		}
	}
	t.Fatalf("expected watcher to reload the new file")
}
