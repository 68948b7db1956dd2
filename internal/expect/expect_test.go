package expect

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomyan/sitecheck/internal/browser"
	"github.com/tomyan/sitecheck/internal/chrome"
)

// fakeTab answers queries from canned values. Calls counts observations so
// tests can make state change over time.
type fakeTab struct {
	calls   atomic.Int32
	urls    []string // URL returns urls[min(call, len-1)]
	visible func(call int32) (bool, error)
	texts   []string
	count   int
}

func (f *fakeTab) next() int32 { return f.calls.Add(1) - 1 }

func (f *fakeTab) ID() string { return "fake" }
func (f *fakeTab) Goto(context.Context, string) error { return nil }
func (f *fakeTab) WaitForLoadState(context.Context, browser.LoadState) error { return nil }
func (f *fakeTab) URL(context.Context) (string, error) {
	i := int(f.next())
	if i >= len(f.urls) {
		i = len(f.urls) - 1
	}
	return f.urls[i], nil
}
func (f *fakeTab) Count(context.Context, browser.Locator) (int, error) { return f.count, nil }
func (f *fakeTab) Texts(context.Context, browser.Locator) ([]string, error) {
	return f.texts, nil
}
func (f *fakeTab) Attribute(context.Context, browser.Locator, string) (string, bool, error) {
	return "", false, nil
}
func (f *fakeTab) Visible(context.Context, browser.Locator) (bool, error) {
	return f.visible(f.next())
}
func (f *fakeTab) Click(context.Context, browser.Locator) error { return nil }
func (f *fakeTab) Remove(context.Context, browser.Locator) (int, error) { return 0, nil }
func (f *fakeTab) Screenshot(context.Context) ([]byte, error) { return nil, nil }
func (f *fakeTab) Content(context.Context) (string, error) { return "", nil }
func (f *fakeTab) Emulate(context.Context, chrome.DeviceInfo) error { return nil }
func (f *fakeTab) Close(context.Context) error { return nil }

func fast(timeout time.Duration) Expect {
	return Expect{Timeout: timeout, Interval: 5 * time.Millisecond}
}

func TestVisible_WaitsUntilRendered(t *testing.T) {
	t.Parallel()

	tab := &fakeTab{visible: func(call int32) (bool, error) {
		if call < 2 {
			return false, browser.ErrNotFound
		}
		return call >= 3, nil
	}}

	err := fast(time.Second).Visible(context.Background(), tab, browser.Locate("header"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, tab.calls.Load(), int32(4))
}

func TestVisible_TimeoutError(t *testing.T) {
	t.Parallel()

	tab := &fakeTab{visible: func(int32) (bool, error) { return false, browser.ErrNotFound }}

	err := fast(50*time.Millisecond).Visible(context.Background(), tab, browser.Locate("header"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, browser.ErrNotFound, "last check error is kept")
	assert.NotErrorIs(t, err, ErrAssertion)

	var te *TimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "header to be visible", te.What)
	assert.Equal(t, 50*time.Millisecond, te.Timeout)
	assert.Contains(t, err.Error(), "timed out after 50ms waiting for header to be visible")
}

func TestHidden(t *testing.T) {
	t.Parallel()

	tab := &fakeTab{visible: func(call int32) (bool, error) { return call < 2, nil }}
	require.NoError(t, fast(time.Second).Hidden(context.Background(), tab, browser.Locate("#moe-push-div")))
}

func TestURL_SettlesAfterRedirects(t *testing.T) {
	t.Parallel()

	tab := &fakeTab{urls: []string{
		"https://mb.io/en-AE",
		"https://mb.io/en-AE/redirecting",
		"https://identity.example.test/Onboarding/start",
	}}

	re := regexp.MustCompile(`(?i)onboarding|register|signup`)
	require.NoError(t, fast(time.Second).URL(context.Background(), tab, re))
}

func TestNotURL(t *testing.T) {
	t.Parallel()

	home := regexp.MustCompile(`(?i)/en-AE$`)

	tab := &fakeTab{urls: []string{"https://mb.io/en-AE", "https://mb.io/en-AE/explore"}}
	require.NoError(t, fast(time.Second).NotURL(context.Background(), tab, home))

	stuck := &fakeTab{urls: []string{"https://mb.io/en-AE"}}
	err := fast(30*time.Millisecond).NotURL(context.Background(), stuck, home)
	var te *TimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "https://mb.io/en-AE", te.Last)
}

func TestTextAssertions(t *testing.T) {
	t.Parallel()

	tab := &fakeTab{texts: []string{"About MultiBank Group", "second"}}
	ctx := context.Background()

	require.NoError(t, fast(time.Second).Text(ctx, tab, browser.Locate("h1, h2").First(), "  About   MultiBank Group "))
	require.NoError(t, fast(time.Second).TextContains(ctx, tab, browser.Locate("h1"), "multibank"))

	err := fast(20*time.Millisecond).Text(ctx, tab, browser.Locate("h1"), "Other")
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Contains(t, err.Error(), `"About MultiBank Group"`)

	empty := &fakeTab{}
	err = fast(20*time.Millisecond).Text(ctx, empty, browser.Locate("h1"), "x")
	assert.Contains(t, err.Error(), "no match")
}

func TestMinCount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	require.NoError(t, fast(time.Second).MinCount(ctx, &fakeTab{count: 3}, browser.Locate("tr"), 1))
	assert.ErrorIs(t, fast(20*time.Millisecond).MinCount(ctx, &fakeTab{}, browser.Locate("tr"), 1), ErrTimeout)
}

func TestPoll_ParentCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Poll(ctx, "anything", time.Second, time.Millisecond, func(context.Context) (string, bool, error) {
		return "", false, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestWithTimeout(t *testing.T) {
	t.Parallel()

	e := New(10 * time.Second)
	short := e.WithTimeout(15 * time.Second)
	assert.Equal(t, 10*time.Second, e.Timeout)
	assert.Equal(t, 15*time.Second, short.Timeout)
	assert.Equal(t, DefaultInterval, short.Interval)
}

func TestThat(t *testing.T) {
	t.Parallel()

	assert.NoError(t, That(true, "x", "y", "z"))

	err := That(false, "download href", "a domain in [apple.com]", `"https://example.com"`)
	assert.ErrorIs(t, err, ErrAssertion)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.Equal(t, `download href: expected a domain in [apple.com], got "https://example.com"`, err.Error())
}

func TestSoft(t *testing.T) {
	t.Parallel()

	var soft Soft
	assert.NoError(t, soft.Err())

	var wg sync.WaitGroup
	for _, label := range []string{"Explore", "Features", "Company"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			soft.Check(That(label == "Explore", "nav contains "+label, "present", "missing"))
		}()
	}
	wg.Wait()

	assert.True(t, soft.Check(nil))
	assert.Len(t, soft.Failures(), 2)

	err := soft.Err()
	var se *SoftError
	require.True(t, errors.As(err, &se))
	assert.Len(t, se.Failures, 2)
	assert.ErrorIs(t, err, ErrAssertion)
	assert.Contains(t, err.Error(), "2 soft assertion(s) failed")
}
