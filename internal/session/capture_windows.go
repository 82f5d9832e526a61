//go:build windows

package session

/*
#cgo LDFLAGS: -ld3d11 -ldxgi -lole32

#include <windows.h>
#include <d3d11.h>
#include <dxgi1_2.h>
#include <stdlib.h>

typedef struct {
    void* data;
    int width;
    int height;
    int bytesPerRow;
    int error;
} CaptureResult;

static ID3D11Device* g_device = NULL;
static ID3D11DeviceContext* g_context = NULL;
static IDXGIOutputDuplication* g_duplication = NULL;
static int g_initialized = 0;

int collectorInitDXGI(int displayIndex) {
    if (g_initialized) {
        return 0;
    }
    HRESULT hr;
    D3D_FEATURE_LEVEL featureLevels[] = { D3D_FEATURE_LEVEL_11_0 };
    D3D_FEATURE_LEVEL featureLevel;

    hr = D3D11CreateDevice(NULL, D3D_DRIVER_TYPE_HARDWARE, NULL, 0, featureLevels, 1,
        D3D11_SDK_VERSION, &g_device, &featureLevel, &g_context);
    if (FAILED(hr)) return 1;

    IDXGIDevice* dxgiDevice = NULL;
    hr = g_device->lpVtbl->QueryInterface(g_device, &IID_IDXGIDevice, (void**)&dxgiDevice);
    if (FAILED(hr)) { g_device->lpVtbl->Release(g_device); g_device = NULL; return 2; }

    IDXGIAdapter* adapter = NULL;
    hr = dxgiDevice->lpVtbl->GetAdapter(dxgiDevice, &adapter);
    dxgiDevice->lpVtbl->Release(dxgiDevice);
    if (FAILED(hr)) { g_device->lpVtbl->Release(g_device); g_device = NULL; return 3; }

    IDXGIOutput* output = NULL;
    hr = adapter->lpVtbl->EnumOutputs(adapter, displayIndex, &output);
    adapter->lpVtbl->Release(adapter);
    if (FAILED(hr)) { g_device->lpVtbl->Release(g_device); g_device = NULL; return 4; }

    IDXGIOutput1* output1 = NULL;
    hr = output->lpVtbl->QueryInterface(output, &IID_IDXGIOutput1, (void**)&output1);
    output->lpVtbl->Release(output);
    if (FAILED(hr)) { g_device->lpVtbl->Release(g_device); g_device = NULL; return 5; }

    hr = output1->lpVtbl->DuplicateOutput(output1, (IUnknown*)g_device, &g_duplication);
    output1->lpVtbl->Release(output1);
    if (FAILED(hr)) { g_device->lpVtbl->Release(g_device); g_device = NULL; return 6; }

    g_initialized = 1;
    return 0;
}

void collectorCleanupDXGI(void) {
    if (g_duplication) { g_duplication->lpVtbl->Release(g_duplication); g_duplication = NULL; }
    if (g_context) { g_context->lpVtbl->Release(g_context); g_context = NULL; }
    if (g_device) { g_device->lpVtbl->Release(g_device); g_device = NULL; }
    g_initialized = 0;
}

CaptureResult collectorCaptureFrame(int displayIndex) {
    CaptureResult result = {0};
    int initResult = collectorInitDXGI(displayIndex);
    if (initResult != 0) { result.error = initResult; return result; }

    HRESULT hr;
    IDXGIResource* desktopResource = NULL;
    DXGI_OUTDUPL_FRAME_INFO frameInfo;

    hr = g_duplication->lpVtbl->AcquireNextFrame(g_duplication, 100, &frameInfo, &desktopResource);
    if (FAILED(hr) && hr == DXGI_ERROR_WAIT_TIMEOUT) {
        hr = g_duplication->lpVtbl->AcquireNextFrame(g_duplication, 500, &frameInfo, &desktopResource);
    }
    if (FAILED(hr)) { result.error = 7; return result; }

    ID3D11Texture2D* desktopTexture = NULL;
    hr = desktopResource->lpVtbl->QueryInterface(desktopResource, &IID_ID3D11Texture2D, (void**)&desktopTexture);
    desktopResource->lpVtbl->Release(desktopResource);
    if (FAILED(hr)) { g_duplication->lpVtbl->ReleaseFrame(g_duplication); result.error = 8; return result; }

    D3D11_TEXTURE2D_DESC textureDesc;
    desktopTexture->lpVtbl->GetDesc(desktopTexture, &textureDesc);
    result.width = textureDesc.Width;
    result.height = textureDesc.Height;
    result.bytesPerRow = result.width * 4;

    D3D11_TEXTURE2D_DESC stagingDesc = textureDesc;
    stagingDesc.Usage = D3D11_USAGE_STAGING;
    stagingDesc.BindFlags = 0;
    stagingDesc.CPUAccessFlags = D3D11_CPU_ACCESS_READ;
    stagingDesc.MiscFlags = 0;

    ID3D11Texture2D* stagingTexture = NULL;
    hr = g_device->lpVtbl->CreateTexture2D(g_device, &stagingDesc, NULL, &stagingTexture);
    if (FAILED(hr)) {
        desktopTexture->lpVtbl->Release(desktopTexture);
        g_duplication->lpVtbl->ReleaseFrame(g_duplication);
        result.error = 9;
        return result;
    }

    g_context->lpVtbl->CopyResource(g_context, (ID3D11Resource*)stagingTexture, (ID3D11Resource*)desktopTexture);
    desktopTexture->lpVtbl->Release(desktopTexture);

    D3D11_MAPPED_SUBRESOURCE mapped;
    hr = g_context->lpVtbl->Map(g_context, (ID3D11Resource*)stagingTexture, 0, D3D11_MAP_READ, 0, &mapped);
    if (FAILED(hr)) {
        stagingTexture->lpVtbl->Release(stagingTexture);
        g_duplication->lpVtbl->ReleaseFrame(g_duplication);
        result.error = 10;
        return result;
    }

    size_t dataSize = (size_t)result.bytesPerRow * (size_t)result.height;
    result.data = malloc(dataSize);
    if (result.data == NULL) {
        g_context->lpVtbl->Unmap(g_context, (ID3D11Resource*)stagingTexture, 0);
        stagingTexture->lpVtbl->Release(stagingTexture);
        g_duplication->lpVtbl->ReleaseFrame(g_duplication);
        result.error = 11;
        return result;
    }

    // DXGI's native desktop format is already BGRA; copied row-by-row to
    // account for the mapped texture's (possibly padded) row pitch.
    unsigned char* src = (unsigned char*)mapped.pData;
    unsigned char* dst = (unsigned char*)result.data;
    for (int y = 0; y < result.height; y++) {
        memcpy(dst + y * result.bytesPerRow, src + y * mapped.RowPitch, result.bytesPerRow);
    }

    g_context->lpVtbl->Unmap(g_context, (ID3D11Resource*)stagingTexture, 0);
    stagingTexture->lpVtbl->Release(stagingTexture);
    g_duplication->lpVtbl->ReleaseFrame(g_duplication);

    return result;
}

void collectorFreeCapture(void* data) {
    if (data != NULL) free(data);
}
*/
import "C"

import (
	"fmt"
	"sync"
)

// dxgiFrameSource implements FrameSource by polling DXGI Desktop
// Duplication once per step, at the pipeline's own cadence. The native
// desktop resolution may not match the configured step frame resolution;
// frames are cropped or letterboxed, top-left aligned, to fit exactly.
type dxgiFrameSource struct {
	mu            sync.Mutex
	displayIndex  int
	width, height int
	targetHwnd    uintptr
}

// NewPlatformFrameSource returns a frame source for the given display; the
// DXGI duplication session is opened on the first NextFrame call, not here.
// targetHwnd, if non-zero, is used to report
// isForeground; NextFrame otherwise always reports true.
func NewPlatformFrameSource(displayIndex, width, height int, targetHwnd uintptr) (FrameSource, error) {
	return &dxgiFrameSource{displayIndex: displayIndex, width: width, height: height, targetHwnd: targetHwnd}, nil
}

func (f *dxgiFrameSource) NextFrame() ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	result := C.collectorCaptureFrame(C.int(f.displayIndex))
	if result.error != 0 {
		return nil, false, translateCaptureError(int(result.error), f.displayIndex)
	}
	defer C.collectorFreeCapture(result.data)

	nativeW := int(result.width)
	nativeH := int(result.height)
	nativeStride := int(result.bytesPerRow)
	nativeBytes := C.GoBytes(result.data, C.int(nativeStride*nativeH))

	out := make([]byte, f.width*f.height*4)
	copyWidth := min(f.width, nativeW)
	copyHeight := min(f.height, nativeH)
	for y := 0; y < copyHeight; y++ {
		srcStart := y * nativeStride
		dstStart := y * f.width * 4
		copy(out[dstStart:dstStart+copyWidth*4], nativeBytes[srcStart:srcStart+copyWidth*4])
	}

	isForeground := true
	if f.targetHwnd != 0 {
		fg, _, _ := procGetForegroundWindow.Call()
		isForeground = fg == f.targetHwnd
	}

	return out, isForeground, nil
}

func (f *dxgiFrameSource) Width() int  { return f.width }
func (f *dxgiFrameSource) Height() int { return f.height }

func (f *dxgiFrameSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	C.collectorCleanupDXGI()
	return nil
}

func translateCaptureError(code, displayIndex int) error {
	switch code {
	case 4:
		return fmt.Errorf("display %d not found", displayIndex)
	case 6:
		return fmt.Errorf("desktop duplication access denied")
	default:
		return fmt.Errorf("dxgi capture failed: code %d", code)
	}
}
