package main

import (
	"context"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/enbility/zeroconf/v3"
	"github.com/jrockway/bedside-clock/display"
	"github.com/jrockway/bedside-clock/encoder"
	"github.com/jrockway/bedside-clock/netmgr"
	"github.com/jrockway/bedside-clock/settings"
	"github.com/jrockway/bedside-clock/timesource"
	"github.com/jrockway/bedside-clock/ui"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

var (
	bind        = flag.String("bind", ":8080", "address to bind for the debug/metrics server")
	i2cName     = flag.String("i2c", "", "i2c bus the display is on; empty for the first available")
	displayAddr = flag.Uint("display-addr", uint(display.DefaultAddr), "i2c address of the display backpack")
	bmeAddr     = flag.Uint("bme280-addr", 0, "i2c address of an optional bme280 sensor; 0 to disable")
	iface       = flag.String("iface", "wlan0", "wireless interface managed from the menu")
	dbPath      = flag.String("db", "/var/lib/bedside-clock/settings.db", "path to the settings database")
	chronyAddr  = flag.String("chrony", "localhost:323", "chronyd command address; empty to skip sync checks")
	autodim     = flag.Bool("autodim", false, "dim the display between sunset and sunrise")
	latitude    = flag.Float64("lat", 30.27, "latitude for -autodim")
	longitude   = flag.Float64("lon", -97.74, "longitude for -autodim")
)

func main() {
	flag.Parse()
	if _, err := host.Init(); err != nil {
		log.Fatalf("init periph host: %v", err)
	}
	bus, err := i2creg.Open(*i2cName)
	if err != nil {
		log.Fatalf("open i2c bus %q: %v", *i2cName, err)
	}

	store, err := settings.Open(*dbPath)
	if err != nil {
		log.Fatalf("open settings database %q: %v", *dbPath, err)
	}
	stored, err := store.Load()
	if err != nil {
		log.Printf("load settings: %v (continuing with defaults)", err)
	}

	d, err := display.New(bus, uint16(*displayAddr), stored.Brightness)
	if err != nil {
		log.Fatalf("init display: %v", err)
	}

	if *bmeAddr != 0 {
		if err := monitorSensors(bus, uint16(*bmeAddr)); err != nil {
			log.Printf("init sensors: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	if *chronyAddr != "" {
		go func() {
			if synced, err := timesource.Synchronized(ctx, *chronyAddr); err != nil {
				log.Printf("check chrony at %s: %v", *chronyAddr, err)
			} else if !synced {
				log.Printf("system clock is not synchronized; the displayed time may be wrong")
			}
			timesource.WatchSync(ctx, *chronyAddr)
		}()
	}

	network := netmgr.New(*iface)

	dec := encoder.NewDecoder(encoder.Options{})
	inputDoneCh := make(chan error)
	go func() {
		err := encoder.Watch(ctx, dec, encoder.DefaultPins())
		select {
		case inputDoneCh <- err:
		case <-ctx.Done():
		}
		close(inputDoneCh)
	}()

	uiConfig := ui.DefaultConfig()
	if *autodim {
		uiConfig.AutoDim = &ui.AutoDim{Latitude: *latitude, Longitude: *longitude}
	}
	ctrl := ui.New(ui.Params{
		Config:   uiConfig,
		Display:  d,
		Events:   dec.C,
		Network:  network,
		Clock:    &timesource.Clock{},
		Store:    store,
		Settings: stored,
	})
	loopDoneCh := make(chan error)
	go func() {
		err := ctrl.Run(ctx)
		select {
		case loopDoneCh <- err:
		case <-ctx.Done():
		}
		close(loopDoneCh)
	}()

	http.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/display.png", http.StatusFound)
	})
	http.Handle("/display.png", d)
	http.Handle("/metrics", promhttp.Handler())

	httpDoneCh := make(chan error)
	httpServer := http.Server{Addr: *bind}
	go func() {
		log.Printf("http server listening on %s", httpServer.Addr)
		err := httpServer.ListenAndServe()
		select {
		case httpDoneCh <- err:
		case <-ctx.Done():
		}
		close(httpDoneCh)
	}()

	mdnsServer := announce(*bind)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	httpAlive := true
	select {
	case err := <-httpDoneCh:
		log.Printf("http server died: %v", err)
		httpAlive = false
	case err := <-loopDoneCh:
		log.Printf("ui loop died: %v", err)
	case err := <-inputDoneCh:
		log.Printf("input watcher died: %v", err)
	case <-sigCh:
		log.Printf("interrupt")
	}
	signal.Stop(sigCh)
	cancel()
	if mdnsServer != nil {
		mdnsServer.Shutdown()
	}
	if err := d.Blank(); err != nil {
		log.Printf("shutdown: %v", err)
	}
	network.Close()
	store.Close()
	if httpAlive {
		tctx, c := context.WithTimeout(context.Background(), time.Second)
		httpServer.Shutdown(tctx)
		c()
	}
	os.Exit(1)
}

// announce registers the debug server in mDNS so it can be found without
// knowing the clock's address.
func announce(bind string) *zeroconf.Server {
	_, portStr, err := net.SplitHostPort(bind)
	if err != nil {
		log.Printf("mdns: parse bind address %q: %v", bind, err)
		return nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		log.Printf("mdns: parse bind port %q: %v", portStr, err)
		return nil
	}
	server, err := zeroconf.Register("bedside-clock", "_http._tcp", "local.", port, []string{"path=/display.png"}, nil)
	if err != nil {
		log.Printf("mdns: announce debug server: %v", err)
		return nil
	}
	return server
}
