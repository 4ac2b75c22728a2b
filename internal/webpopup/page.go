package webpopup

import (
	"bytes"
	"html/template"
)

type pageData struct {
	HostName string
}

var pageTmpl = template.Must(template.New("popup").Parse(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Native Messaging: {{.HostName}}</title>
    <style>
      :root {
        --bg: #0b1020;
        --panel: #111832;
        --text: #e9edf7;
        --muted: #a5b0cc;
        --border: rgba(255, 255, 255, 0.10);
        --accent: #7aa2ff;
        --good: #2dd4bf;
        --bad: #fb7185;
        --mono: ui-monospace, SFMono-Regular, Menlo, Monaco, Consolas, monospace;
        --sans: ui-sans-serif, system-ui, -apple-system, Segoe UI, Roboto, Helvetica, Arial;
      }
      * { box-sizing: border-box; }
      body { margin: 0; padding: 16px; background: var(--bg); color: var(--text); font-family: var(--sans); width: 420px; }
      h1 { font-size: 15px; margin: 0 0 12px; }
      h1 span { color: var(--muted); font-family: var(--mono); font-weight: normal; }
      .controls { display: flex; gap: 8px; margin-bottom: 12px; }
      button { background: var(--panel); color: var(--accent); border: 1px solid var(--border); border-radius: 6px; padding: 6px 14px; cursor: pointer; }
      input { flex: 1; background: var(--panel); color: var(--text); border: 1px solid var(--border); border-radius: 6px; padding: 6px 8px; font-family: var(--mono); }
      #response { border-top: 1px solid var(--border); font-family: var(--mono); font-size: 12px; max-height: 360px; overflow-y: auto; }
      #response p { margin: 6px 0; }
      #response .time { color: var(--muted); margin-right: 6px; }
      #response .received { color: var(--good); }
      #response .failure { color: var(--bad); }
      #response .sent { color: var(--accent); }
    </style>
  </head>
  <body>
    <h1>Native Messaging <span>{{.HostName}}</span></h1>
    <div class="controls">
      <button id="connect-button">Connect</button>
      <input id="input-text" type="text" placeholder="Message to send..." style="display: none" />
      <button id="send-message-button" style="display: none">Send</button>
    </div>
    <div id="response"></div>
    <script>
      (function () {
        const connectButton = document.getElementById("connect-button");
        const inputText = document.getElementById("input-text");
        const sendButton = document.getElementById("send-message-button");
        const response = document.getElementById("response");
        const scheme = location.protocol === "https:" ? "wss:" : "ws:";
        const socket = new WebSocket(scheme + "//" + location.host + "/ws");

        function show(el, visible) {
          el.style.display = visible ? "block" : "none";
        }

        function appendEntry(entry) {
          const p = document.createElement("p");
          p.className = entry.kind;
          const time = document.createElement("span");
          time.className = "time";
          time.textContent = new Date(entry.time).toLocaleTimeString();
          const value = document.createElement("b");
          value.textContent = entry.value;
          p.append(time, document.createTextNode(entry.prefix), value);
          response.appendChild(p);
          response.scrollTop = response.scrollHeight;
        }

        function post(msg) {
          if (socket.readyState === WebSocket.OPEN) {
            socket.send(JSON.stringify(msg));
          }
        }

        socket.addEventListener("message", function (ev) {
          const msg = JSON.parse(ev.data);
          if (msg.type === "entry") {
            appendEntry(msg.entry);
          } else if (msg.type === "state") {
            show(connectButton, msg.state.connectVisible);
            show(inputText, msg.state.inputVisible);
            show(sendButton, msg.state.sendVisible);
          }
        });
        socket.addEventListener("close", function () {
          appendEntry({ kind: "failure", prefix: "Popup server closed the session", value: "", time: Date.now() });
          show(connectButton, false);
          show(inputText, false);
          show(sendButton, false);
        });

        connectButton.addEventListener("click", function () { post({ type: "connect" }); });
        sendButton.addEventListener("click", function () {
          post({ type: "send", text: inputText.value });
        });
        inputText.addEventListener("keydown", function (ev) {
          if (ev.key === "Enter") {
            post({ type: "send", text: inputText.value });
          }
        });
      })();
    </script>
  </body>
</html>
`))

func renderPage(data pageData) ([]byte, error) {
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
