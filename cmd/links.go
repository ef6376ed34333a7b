package cmd

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli"

	"github.com/chimebell/chime/internal/config"
	"github.com/chimebell/chime/internal/links"
)

var linksConfigPath string

var linksFlags = []cli.Flag{
	cli.StringFlag{
		Name:        "config, c",
		Usage:       "`path` of the config file",
		Destination: &linksConfigPath,
	},
}

const verifyTimeout = 10 * time.Second

func openSheet(ctx *cli.Context, action string) (*links.Sheet, *config.Config) {
	cfg, err := config.Load(linksConfigPath)
	if err != nil {
		printRuntimeErr(ctx, "links", action, err)
		return nil, nil
	}
	sheet, err := links.Open(cfg.LinksFile)
	if err != nil {
		printRuntimeErr(ctx, "links", action, err)
		return nil, nil
	}
	return sheet, cfg
}

func linksList(ctx *cli.Context) error {
	sheet, cfg := openSheet(ctx, "list")
	if sheet == nil {
		return nil
	}
	fmt.Printf("%s (%d links, %s rotation):\n", cfg.LinksFile, len(sheet.URLs), cfg.Selection)
	for i, link := range sheet.URLs {
		fmt.Printf("%3d  %s\n", i+1, link)
	}
	return nil
}

// linksVerify probes every sheet link and reports the broken ones.
// http(s) links get a HEAD request, file links a stat, everything else
// a TCP dial of the host.
func linksVerify(ctx *cli.Context) error {
	sheet, _ := openSheet(ctx, "verify")
	if sheet == nil {
		return nil
	}
	var broken int
	for _, link := range sheet.URLs {
		if err := probeLink(link); err != nil {
			broken++
			fmt.Printf("FAIL  %s: %v\n", link, err)
			continue
		}
		fmt.Printf("ok    %s\n", link)
	}
	if broken > 0 {
		fmt.Printf("%d of %d links failed.\n", broken, len(sheet.URLs))
		return nil
	}
	fmt.Println("All links ok.")
	return nil
}

func probeLink(link string) error {
	u, err := url.Parse(link)
	if err != nil {
		return err
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		client := &http.Client{Timeout: verifyTimeout}
		resp, err := client.Head(link)
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.StatusCode >= 400 {
			return fmt.Errorf("status %s", resp.Status)
		}
		return nil
	case "file", "":
		_, err := os.Stat(u.Path)
		return err
	default:
		host := u.Host
		if !strings.Contains(host, ":") {
			host = net.JoinHostPort(host, defaultPort(u.Scheme))
		}
		conn, err := net.DialTimeout("tcp", host, verifyTimeout)
		if err != nil {
			return err
		}
		return conn.Close()
	}
}

func defaultPort(scheme string) string {
	switch scheme {
	case "ftp":
		return "21"
	case "sftp", "ssh":
		return "22"
	default:
		return "80"
	}
}
