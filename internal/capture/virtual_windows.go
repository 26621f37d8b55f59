//go:build windows
// +build windows

package capture

import (
	"fmt"
	"image"
	"unsafe"

	"github.com/lxn/win"

	"jordanella.com/auto-clicker/internal/geometry"
)

// VirtualScreen grabs the whole virtual-screen bounding box reported by
// the OS metrics with a single GDI BitBlt.
type VirtualScreen struct{}

func (VirtualScreen) Name() string { return "virtual-screen" }

func (VirtualScreen) Grab() (*image.RGBA, geometry.VirtualDesktopGeometry, error) {
	geom := geometry.VirtualDesktopGeometry{
		Left:   int(win.GetSystemMetrics(win.SM_XVIRTUALSCREEN)),
		Top:    int(win.GetSystemMetrics(win.SM_YVIRTUALSCREEN)),
		Width:  int(win.GetSystemMetrics(win.SM_CXVIRTUALSCREEN)),
		Height: int(win.GetSystemMetrics(win.SM_CYVIRTUALSCREEN)),
	}
	if geom.Degenerate() {
		return nil, geom, fmt.Errorf("virtual screen metrics unavailable: %s", geom)
	}

	img, err := bitBlt(geom)
	if err != nil {
		return nil, geom, err
	}
	return img, geom, nil
}

// bitBlt copies a screen region into an RGBA image
func bitBlt(geom geometry.VirtualDesktopGeometry) (*image.RGBA, error) {
	hdcScreen := win.GetDC(0)
	if hdcScreen == 0 {
		return nil, fmt.Errorf("failed to get screen DC")
	}
	defer win.ReleaseDC(0, hdcScreen)

	hdcMem := win.CreateCompatibleDC(hdcScreen)
	if hdcMem == 0 {
		return nil, fmt.Errorf("failed to create compatible DC")
	}
	defer win.DeleteDC(hdcMem)

	width, height := int32(geom.Width), int32(geom.Height)
	hBitmap := win.CreateCompatibleBitmap(hdcScreen, width, height)
	if hBitmap == 0 {
		return nil, fmt.Errorf("failed to create compatible bitmap")
	}
	defer win.DeleteObject(win.HGDIOBJ(hBitmap))

	old := win.SelectObject(hdcMem, win.HGDIOBJ(hBitmap))
	defer win.SelectObject(hdcMem, old)

	if !win.BitBlt(hdcMem, 0, 0, width, height, hdcScreen, int32(geom.Left), int32(geom.Top), win.SRCCOPY|win.CAPTUREBLT) {
		return nil, fmt.Errorf("BitBlt failed")
	}

	var bi win.BITMAPINFO
	bi.BmiHeader.BiSize = uint32(unsafe.Sizeof(bi.BmiHeader))
	bi.BmiHeader.BiWidth = width
	bi.BmiHeader.BiHeight = -height // top-down
	bi.BmiHeader.BiPlanes = 1
	bi.BmiHeader.BiBitCount = 32
	bi.BmiHeader.BiCompression = win.BI_RGB

	img := image.NewRGBA(image.Rect(0, 0, geom.Width, geom.Height))
	if win.GetDIBits(hdcMem, hBitmap, 0, uint32(height), &img.Pix[0], &bi, win.DIB_RGB_COLORS) == 0 {
		return nil, fmt.Errorf("GetDIBits failed")
	}

	// BGRA to RGBA; GDI leaves alpha zeroed
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+2] = img.Pix[i+2], img.Pix[i]
		img.Pix[i+3] = 0xff
	}

	return img, nil
}
