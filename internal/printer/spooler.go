package printer

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// rawPrintScript pushes a staged file to a Windows printer byte-for-byte via
// the winspool API. Out-Printer and friends re-render text, which destroys
// ESC/POS and ZPL command streams.
const rawPrintScript = `
param([string]$PrinterName, [string]$FilePath)
Add-Type -TypeDefinition @"
using System;
using System.IO;
using System.Runtime.InteropServices;
public class RawPrinterHelper {
    [StructLayout(LayoutKind.Sequential, CharSet=CharSet.Ansi)]
    public class DOCINFOA {
        [MarshalAs(UnmanagedType.LPStr)] public string pDocName;
        [MarshalAs(UnmanagedType.LPStr)] public string pOutputFile;
        [MarshalAs(UnmanagedType.LPStr)] public string pDataType;
    }
    [DllImport("winspool.Drv", EntryPoint="OpenPrinterA", SetLastError=true, CharSet=CharSet.Ansi)]
    public static extern bool OpenPrinter(string szPrinter, out IntPtr hPrinter, IntPtr pd);
    [DllImport("winspool.Drv", EntryPoint="ClosePrinter", SetLastError=true)]
    public static extern bool ClosePrinter(IntPtr hPrinter);
    [DllImport("winspool.Drv", EntryPoint="StartDocPrinterA", SetLastError=true, CharSet=CharSet.Ansi)]
    public static extern bool StartDocPrinter(IntPtr hPrinter, Int32 level, [In, MarshalAs(UnmanagedType.LPStruct)] DOCINFOA di);
    [DllImport("winspool.Drv", EntryPoint="EndDocPrinter", SetLastError=true)]
    public static extern bool EndDocPrinter(IntPtr hPrinter);
    [DllImport("winspool.Drv", EntryPoint="StartPagePrinter", SetLastError=true)]
    public static extern bool StartPagePrinter(IntPtr hPrinter);
    [DllImport("winspool.Drv", EntryPoint="EndPagePrinter", SetLastError=true)]
    public static extern bool EndPagePrinter(IntPtr hPrinter);
    [DllImport("winspool.Drv", EntryPoint="WritePrinter", SetLastError=true)]
    public static extern bool WritePrinter(IntPtr hPrinter, IntPtr pBytes, Int32 dwCount, out Int32 dwWritten);
    public static bool SendFileToPrinter(string printerName, string filePath) {
        byte[] bytes = File.ReadAllBytes(filePath);
        IntPtr hPrinter;
        if (!OpenPrinter(printerName, out hPrinter, IntPtr.Zero)) return false;
        DOCINFOA di = new DOCINFOA();
        di.pDocName = "printbridge raw job";
        di.pDataType = "RAW";
        bool ok = false;
        if (StartDocPrinter(hPrinter, 1, di)) {
            if (StartPagePrinter(hPrinter)) {
                IntPtr unmanaged = Marshal.AllocCoTaskMem(bytes.Length);
                Marshal.Copy(bytes, 0, unmanaged, bytes.Length);
                int written;
                ok = WritePrinter(hPrinter, unmanaged, bytes.Length, out written);
                Marshal.FreeCoTaskMem(unmanaged);
                EndPagePrinter(hPrinter);
            }
            EndDocPrinter(hPrinter);
        }
        ClosePrinter(hPrinter);
        return ok;
    }
}
"@
if (-not [RawPrinterHelper]::SendFileToPrinter($PrinterName, $FilePath)) { exit 1 }
`

// SpoolerTransport delivers payloads through the operating system's print
// spooler, addressed by queue name. Payloads are staged in a temp file and
// handed to lp in raw mode, or to winspool on Windows.
type SpoolerTransport struct {
	log *logrus.Logger
}

func NewSpoolerTransport(log *logrus.Logger) *SpoolerTransport {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SpoolerTransport{log: log}
}

func (t *SpoolerTransport) Send(printerName string, data []byte) error {
	file, err := os.CreateTemp("", "printbridge-*.bin")
	if err != nil {
		return fmt.Errorf("%w: stage temp file: %v", ErrSpoolerFailed, err)
	}
	path := file.Name()
	defer os.Remove(path)

	if _, err := file.Write(data); err != nil {
		file.Close()
		return fmt.Errorf("%w: write temp file: %v", ErrSpoolerFailed, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("%w: close temp file: %v", ErrSpoolerFailed, err)
	}

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command",
			rawPrintScript, "-PrinterName", printerName, "-FilePath", path)
	} else {
		cmd = exec.Command("lp", "-d", printerName, "-o", "raw", path)
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s: %v: %s",
			ErrSpoolerFailed, printerName, err, strings.TrimSpace(string(output)))
	}

	t.log.WithFields(logrus.Fields{
		"printer": printerName,
		"bytes":   len(data),
	}).Debug("payload handed to system spooler")

	return nil
}
