package webmonitor

const indexHTML = `
<!DOCTYPE html>
<html>
<head>
    <title>FOCUS Fusion Monitor</title>
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body { margin: 0; background: #111827; color: #e5e7eb; font-family: 'Segoe UI', sans-serif; }
        .app { max-width: 960px; margin: 0 auto; padding: 20px; }
        .header { display: flex; justify-content: space-between; align-items: center; margin-bottom: 16px; }
        .title { font-size: 22px; font-weight: 600; }
        .badge { padding: 4px 10px; border-radius: 12px; font-size: 13px; background: #374151; }
        .badge.open { background: #065f46; }
        .badge.down { background: #7f1d1d; }
        .panel { background: #1f2937; border-radius: 8px; padding: 16px; margin-bottom: 16px; }
        .panel h2 { margin: 0 0 10px; font-size: 16px; }
        #stream { width: 100%; height: auto; display: block; background: #000; border-radius: 4px; }
        .stat-grid { display: grid; grid-template-columns: repeat(4, 1fr); gap: 12px; }
        .stat-label { display: block; font-size: 12px; color: #9ca3af; }
        .stat-value { display: block; font-size: 22px; font-weight: 600; }
        .fall-banner { display: none; margin-top: 12px; padding: 10px; text-align: center;
                       background: #dc2626; border-radius: 6px; font-weight: 700; }
        .fall-banner.active { display: block; }
    </style>
</head>
<body>
    <div class="app">
        <div class="header">
            <div class="title">FOCUS Fusion Monitor</div>
            <span class="badge" id="status-badge">Waiting for data...</span>
        </div>

        <div class="panel">
            <h2>Live Feed</h2>
            <img id="stream" src="/stream" alt="Annotated live stream">
            <div class="fall-banner" id="fall-banner">FALL DETECTED</div>
        </div>

        <div class="panel">
            <h2>Status</h2>
            <div class="stat-grid">
                <div class="stat">
                    <span class="stat-label">FPS</span>
                    <span class="stat-value" id="fps">--</span>
                </div>
                <div class="stat">
                    <span class="stat-label">Persons</span>
                    <span class="stat-value" id="persons">--</span>
                </div>
                <div class="stat">
                    <span class="stat-label">Frame age</span>
                    <span class="stat-value" id="frame-age">--</span>
                </div>
                <div class="stat">
                    <span class="stat-label">Reconnects</span>
                    <span class="stat-value" id="reconnects">--</span>
                </div>
            </div>
        </div>
    </div>

    <script>
        const badge = document.getElementById('status-badge');
        const banner = document.getElementById('fall-banner');

        function applyStatus(status) {
            badge.textContent = status.conn_state;
            badge.className = 'badge ' + (status.conn_state === 'open' ? 'open' : 'down');
            banner.className = status.fall_active ? 'fall-banner active' : 'fall-banner';
            document.getElementById('fps').textContent = status.fps;
            document.getElementById('persons').textContent = status.person_count;
            document.getElementById('frame-age').textContent = status.frame_age_sec.toFixed(1) + 's';
            document.getElementById('reconnects').textContent = status.reconnects;
        }

        function pollStatus() {
            fetch('/api/status')
                .then(resp => resp.json())
                .then(applyStatus)
                .catch(() => { badge.textContent = 'monitor unreachable'; badge.className = 'badge down'; });
        }

        if (window.EventSource) {
            const source = new EventSource('/api/status/stream');
            source.onmessage = event => applyStatus(JSON.parse(event.data));
            source.onerror = () => { badge.textContent = 'reconnecting...'; badge.className = 'badge down'; };
        } else {
            pollStatus();
            setInterval(pollStatus, 2000);
        }
    </script>
</body>
</html>
`
