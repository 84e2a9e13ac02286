package server

import (
	"html/template"
)

var indexHTML = template.Must(template.New("index").Parse(`<!doctype html>
<html>
<head>
<meta charset=utf-8>
<meta name=viewport content="width=device-width, initial-scale=1.0">
<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/water.css@2/out/water.css">
<title>{{.Config.Title}}</title>
<style>
  .status-connecting { color: #d29922; }
  .status-online { color: #3fb950; }
  .status-offline { color: #f85149; }
  .status-error { color: #f85149; font-weight: bold; }
  #stream { max-width: 100%; max-height: 80vh; height: auto; }
</style>
</head>
<body onload="main();">
  <header>
    <h1>{{.Config.Title}}</h1>
    <p>
      <span id="status" class="{{.View.Class}}">{{.View.Label}}</span>
      <small id="connectionInfo">{{.View.ConnectionInfo}}</small>
    </p>
  </header>

  <div id="loading" {{if not .View.Loading}}style="display: none;"{{end}}>Loading stream...</div>
  <div id="error" {{if not .View.ErrorPanel}}style="display: none;"{{end}}>
    <p>Could not reach the stream after several attempts.</p>
    <p>Check that the capture script and the tunnel are running, then refresh.</p>
  </div>
  <img id="stream" alt="Live screen" {{if not .View.MediaVisible}}style="display: none;"{{end}}>

  <p>
    Uptime: <span id="uptime">{{.View.Uptime}}</span> &middot;
    Last updated: <span id="lastUpdate">{{.View.LastUpdated}}</span>
  </p>

  <form method="post" action="/refresh" style="display: inline;">
    <button type="submit">Refresh</button>
  </form>
  <button onclick="toggleFullscreen();">Full screen</button>
  <button onclick="showHelp();">Help</button>

<script>
  const frameRefresh = {{.Config.FrameRefresh.Milliseconds}};
  var mediaVisible = false;

  function show(id, visible) {
    document.getElementById(id).style.display = visible ? "block" : "none";
  }

  function render(view) {
    var status = document.getElementById("status");
    status.textContent = view.label;
    status.className = view.class;
    document.getElementById("connectionInfo").textContent = view.connection_info;
    document.getElementById("uptime").textContent = view.uptime;
    document.getElementById("lastUpdate").textContent = view.last_updated;
    show("loading", view.loading);
    show("error", view.error_panel);
    show("stream", view.media_visible);
    var appeared = view.media_visible && !mediaVisible;
    mediaVisible = view.media_visible;
    if (appeared) {
      tick();
    }
  }

  function tick() {
    if (mediaVisible) {
      document.getElementById("stream").src = "./latest?t=" + new Date().getTime();
    }
  }

  function subscribe() {
    var scheme = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(scheme + location.host + "/events");
    ws.onmessage = function(ev) { render(JSON.parse(ev.data)); };
    ws.onclose = function() { setTimeout(subscribe, 2000); };
  }

  function toggleFullscreen() {
    if (!document.fullscreenElement) {
      document.documentElement.requestFullscreen().catch(function(err) {
        console.log("could not enter full screen: " + err.message);
      });
    } else {
      document.exitFullscreen();
    }
  }

  async function showHelp() {
    var resp = await fetch("./help");
    alert(await resp.text());
  }

  function main() {
    subscribe();
    setInterval(tick, frameRefresh);
  }
</script>
</body>
</html>
`))
