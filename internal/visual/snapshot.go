package visual

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"
)

// 中文说明：
// 用 headless Chrome 对页面整页截图（分享 / 归档用）。
// 机器上没有可用浏览器时直接报不可用，调用方自行降级。

var chromeBinaries = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"headless-shell",
}

// Available 检查本机是否存在可用的 headless Chrome
func Available() error {
	for _, name := range chromeBinaries {
		if _, err := exec.LookPath(name); err == nil {
			return nil
		}
	}
	return fmt.Errorf("未找到 headless Chrome（请安装 chromium 或 google-chrome）")
}

// CapturePNG 打开 url 并整页截图
func CapturePNG(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancelTimeout := context.WithTimeout(ctx, timeout)
	defer cancelTimeout()
	ctx, cancel := chromedp.NewContext(ctx)
	defer cancel()

	var buf []byte
	err := chromedp.Run(ctx,
		chromedp.EmulateViewport(1600, 1000),
		chromedp.Navigate(url),
		// 等待首帧推送渲染完成
		chromedp.Sleep(800*time.Millisecond),
		chromedp.FullScreenshot(&buf, 90),
	)
	if err != nil {
		return nil, fmt.Errorf("页面截图失败: %w", err)
	}
	return buf, nil
}
